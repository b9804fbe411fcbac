// Package http implements the HTTP handlers of the KPI dashboard service.
// Handlers are a thin layer between HTTP transport and the dashboard
// service: they parse and validate requests, call the service and render
// the result.
//
// # Routes
//
//	POST   /api/sessions                 create a session bound to the default dataset
//	GET    /api/sessions/{id}            session and dataset info
//	DELETE /api/sessions/{id}            drop the session and disconnect its live clients
//	POST   /api/sessions/{id}/dataset    multipart upload of a KPI file ("file")
//	GET    /api/sessions/{id}/view       render model for start, end, site, sector, cell, metric
//	GET    /api/sessions/{id}/drill      records behind one trend date (?date=)
//	GET    /api/sessions/{id}/export     CSV or XLSX download (?format=&scope=&date=)
//	GET    /api/metrics/options          metric selector
//	POST   /api/logs                     browser error reports
//	GET    /                             dashboard page
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
//	    req := api.FilterRequestFromQuery(r.URL.Query())
//	    if err := h.validator.Struct(req); err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//	    model, err := h.service.View(r.Context(), chi.URLParam(r, "id"), req)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//	    render.JSON(w, r, model)
//	}
//
// # Error Handling
//
// All errors are rendered as RFC 7807 problem details by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/dataset/missing-column",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "Required column \"site\" is missing",
//	    "instance": "/api/sessions/6f1c.../dataset",
//	    "error_code": "MISSING_COLUMN",
//	    "details": {"column": "site", "present": ["date", "traffic_gb"]},
//	    "trace_id": "..."
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// DashboardService.
package http
