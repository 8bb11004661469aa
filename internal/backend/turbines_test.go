package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTurbine_WrappedAndBare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/1/windturbines/wrapped":
			writeJSON(t, w, map[string]any{"data": domain.Turbine{ID: "wrapped", Name: "W"}})
		case "/api/1/windturbines/bare":
			writeJSON(t, w, domain.Turbine{ID: "bare", Name: "B"})
		case "/api/1/windturbines/empty":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()
	c := testClient(srv.URL)

	got, err := c.GetTurbine(context.Background(), "wrapped")
	require.NoError(t, err)
	assert.Equal(t, "W", got.Name)

	got, err = c.GetTurbine(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)

	_, err = c.GetTurbine(context.Background(), "empty")
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestCreateTurbine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, turbinesPath, r.URL.Path)
		var in TurbineInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "New", in.Name)
		assert.Equal(t, "Vestas", in.Manufacturer.Name)
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, domain.Turbine{ID: "t-new", Name: in.Name})
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).CreateTurbine(context.Background(), TurbineInput{Name: "New", Manufacturer: domain.Manufacturer{Name: "Vestas"}})
	require.NoError(t, err)
	assert.Equal(t, "t-new", got.ID)
}

func TestUpdateTurbine_FallsBackToPut(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL).UpdateTurbine(context.Background(), "t1", TurbineInput{Name: "X"}))
	assert.Equal(t, []string{http.MethodPatch, http.MethodPut}, methods)
}

func TestUpdateTurbine_PatchSucceeds(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL).UpdateTurbine(context.Background(), "t1", TurbineInput{Name: "X"}))
	assert.Equal(t, []string{http.MethodPatch}, methods)
}

func TestUpdateTurbine_BothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := testClient(srv.URL).UpdateTurbine(context.Background(), "t1", TurbineInput{})
	assert.Equal(t, domain.ClassBackendDown, domain.Classify(err))
}

func TestDeleteTurbine_EscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/1/windturbines/a%2Fb", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL).DeleteTurbine(context.Background(), "a/b"))
}

func TestWorkOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/1/workorders":
			assert.Equal(t, "t1", r.URL.Query().Get("windTurbineId"))
			writeJSON(t, w, map[string]any{"data": []domain.WorkOrder{{ID: "w1", Status: domain.WorkOrderOpen}}})
		case "/api/1/workorders/w1":
			writeJSON(t, w, domain.WorkOrder{ID: "w1", Title: "Gearbox"})
		case "/api/1/workorders/w1/comments":
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			writeJSON(t, w, []domain.WorkOrderComment{{ID: "c1", Body: "checked"}})
		}
	}))
	defer srv.Close()
	c := testClient(srv.URL)
	ctx := context.Background()

	orders, err := c.ListWorkOrders(ctx, url.Values{"windTurbineId": {"t1"}})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "w1", orders[0].ID)

	wo, err := c.GetWorkOrder(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "Gearbox", wo.Title)

	comments, err := c.ListComments(ctx, "w1", 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "checked", comments[0].Body)
}

func TestSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case turbinesPath:
			writeJSON(t, w, []domain.Turbine{{ID: "a", Active: true}, {ID: "b"}})
		case workOrdersPath:
			writeJSON(t, w, []domain.WorkOrder{
				{ID: "1", Status: domain.WorkOrderOpen},
				{ID: "2", Status: domain.WorkOrderInProgress},
				{ID: "3", Status: domain.WorkOrderClosed},
			})
		}
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Summary(context.Background(), 500, map[string]domain.Reading{
		"a": {PowerKW: 100},
		"b": {PowerKW: 201},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{
		TotalTurbines:        2,
		ActiveTurbines:       1,
		TotalWorkOrders:      3,
		OpenWorkOrders:       1,
		InProgressWorkOrders: 1,
		AvgPowerOutput:       150.5,
	}, got)
}

func TestForward_RelaysStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer x", r.Header.Get("Authorization"))
		assert.Equal(t, "status=open", r.URL.RawQuery)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Forward(context.Background(), http.MethodGet, "/api/1/workorders?status=open",
		http.Header{"Authorization": {"Bearer x"}}, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
