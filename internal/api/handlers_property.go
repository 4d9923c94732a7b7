// internal/api/handlers_property.go
package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"oikos-server/internal/common/logger"
	"oikos-server/internal/property"
	"oikos-server/internal/search"
)

// PropertyHandler exposes the listing catalog and the search endpoint.
type PropertyHandler struct {
	svc             *property.Service
	defaultMaxPrice float64
	log             logger.Logger
}

func NewPropertyHandler(svc *property.Service, defaultMaxPrice float64, log logger.Logger) *PropertyHandler {
	return &PropertyHandler{svc: svc, defaultMaxPrice: defaultMaxPrice, log: log}
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload property.ListingPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, h.log, err)
		return
	}

	created, err := h.svc.Create(r.Context(), UserID(r), property.Decode(&payload))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, property.Encode(created))
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	prop, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, property.Encode(prop))
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	props, err := h.svc.List(r.Context(), query.Get("seller_id"), limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"properties": property.EncodeAll(props),
		"count":      len(props),
	})
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload property.ListingPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, h.log, err)
		return
	}

	prop := property.Decode(&payload)
	prop.ID = mux.Vars(r)["id"]

	updated, err := h.svc.Update(r.Context(), UserID(r), prop)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, property.Encode(updated))
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), UserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted"})
}

// Search runs the filter pipeline over the catalog. All criteria arrive as
// query parameters; absent ones stay at their neutral defaults.
func (h *PropertyHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	criteria := search.DefaultCriteria(h.defaultMaxPrice)

	criteria.FreeTextQuery = query.Get("q")
	if v := query.Get("min_price"); v != "" {
		criteria.MinPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := query.Get("max_price"); v != "" {
		criteria.MaxPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := query.Get("min_beds"); v != "" {
		criteria.MinBeds, _ = strconv.Atoi(v)
	}
	if v := query.Get("min_baths"); v != "" {
		criteria.MinBaths, _ = strconv.Atoi(v)
	}
	if v := query.Get("property_type"); v != "" {
		criteria.PropertyType = v
	}
	if v := query.Get("location"); v != "" {
		criteria.Location = v
	}

	result, err := h.svc.Search(r.Context(), criteria, query.Get("selected"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"properties":  property.EncodeAll(result.Properties),
		"count":       len(result.Properties),
		"selected_id": result.SelectedID,
	})
}
