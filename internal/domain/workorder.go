package domain

// Work order statuses and priorities the dashboard counts. The backend may
// send others; they pass through untouched.
const (
	WorkOrderOpen       = "open"
	WorkOrderInProgress = "in_progress"
	WorkOrderClosed     = "closed"

	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// WorkOrder is a maintenance task raised against a turbine.
type WorkOrder struct {
	ID            string `json:"id"`
	WindTurbineID string `json:"windTurbineId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	AssignedTo    string `json:"assignedTo,omitempty"`
	CreatedDate   string `json:"createdDate"`
	DueDate       string `json:"dueDate,omitempty"`
	ResolvedDate  string `json:"resolvedDate,omitempty"`
}

// WorkOrderComment is a note attached to a work order.
type WorkOrderComment struct {
	ID          string `json:"id"`
	WorkOrderID string `json:"workOrderId"`
	Author      string `json:"author,omitempty"`
	Body        string `json:"body"`
	CreatedDate string `json:"createdDate"`
}
