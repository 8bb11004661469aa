package domain

import "math"

// Summary is the fleet overview shown on the dashboard cards.
type Summary struct {
	TotalTurbines        int     `json:"totalTurbines"`
	ActiveTurbines       int     `json:"activeTurbines"`
	TotalWorkOrders      int     `json:"totalWorkOrders"`
	OpenWorkOrders       int     `json:"openWorkOrders"`
	InProgressWorkOrders int     `json:"inProgressWorkOrders"`
	AvgPowerOutput       float64 `json:"avgPowerOutput"`
}

// Summarize counts turbines and work orders and averages the latest power
// reading per turbine, rounded to two decimals. No readings yields zero.
func Summarize(turbines []TurbineRecord, orders []WorkOrder, latest map[string]Reading) Summary {
	s := Summary{
		TotalTurbines:   len(turbines),
		TotalWorkOrders: len(orders),
	}
	for _, t := range turbines {
		if t.Active {
			s.ActiveTurbines++
		}
	}
	for _, wo := range orders {
		switch wo.Status {
		case WorkOrderOpen:
			s.OpenWorkOrders++
		case WorkOrderInProgress:
			s.InProgressWorkOrders++
		}
	}
	if len(latest) > 0 {
		var sum float64
		for _, r := range latest {
			sum += r.PowerKW
		}
		s.AvgPowerOutput = math.Round(sum/float64(len(latest))*100) / 100
	}
	return s
}
