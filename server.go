package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Repository is the read interface the handlers consume. *Store is the
// production implementation; tests substitute fakes.
type Repository interface {
	PendingWorkItems(cutoff time.Time) ([]WorkItem, error)
	PriorityMarkers() ([]PriorityMarker, error)
	WorkItemsByInspectorPrefix(prefix string, limit int) ([]WorkItem, error)
	InspectorIdentities(limit int) ([]InspectorIdentity, error)
	InspectedBetween(from, to time.Time) ([]WorkItem, error)
	InspectedSince(since time.Time) ([]WorkItem, error)
	FinishedSince(since time.Time) ([]WorkItem, error)
	Machines() ([]string, error)
	PendingCount(cutoff time.Time) (int64, error)
	InspectedCountBetween(from, to time.Time) (int64, error)
}

type Server struct {
	cfg      Config
	repo     Repository
	settings *SettingsStore
	now      func() time.Time
}

func NewServer(cfg Config, repo Repository, settings *SettingsStore) *Server {
	return &Server{cfg: cfg, repo: repo, settings: settings, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/queue", s.handleQueue)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/today-stats", s.handleTodayStats)
	mux.HandleFunc("GET /api/attribution", s.handleAttribution)
	mux.HandleFunc("GET /api/employee-stats", s.handleEmployeeStats)
	mux.HandleFunc("GET /api/operators-stats", s.handleOperatorsStats)
	mux.HandleFunc("GET /api/employees", s.handleEmployees)
	mux.HandleFunc("GET /api/employee-checked-parts/{name}", s.handleEmployeeCheckedParts)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handlePutSettings)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeUnavailable signals that the data source failed. This is deliberately
// distinct from a 200 with empty collections, which means "no data for this
// period"; dashboards render the two differently.
func writeUnavailable(w http.ResponseWriter, err error) {
	log.Printf("repository error: %v", err)
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "data source unavailable"})
}

func apiTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

type workItemJSON struct {
	ID            int64  `json:"id"`
	OrderNumber   string `json:"order_number"`
	PartName      string `json:"part_name"`
	MachineName   string `json:"machine_name"`
	Operator      string `json:"operator"`
	Barcode       string `json:"barcode"`
	Quantity      int64  `json:"quantity"`
	DateStart     any    `json:"date_start"`
	DateFinish    any    `json:"date_finish"`
	QCDUser       string `json:"qcd_user"`
	QCDDateFinish any    `json:"qcd_date_finish"`
	QCDAmount     int64  `json:"qcd_amount"`
	QCDDefect     int64  `json:"qcd_defect"`
	QCDComment    string `json:"qcd_comment"`
}

func toWorkItemJSON(w WorkItem) workItemJSON {
	return workItemJSON{
		ID:            w.ID,
		OrderNumber:   w.OrderNumber,
		PartName:      w.PartName,
		MachineName:   w.MachineName,
		Operator:      w.Operator,
		Barcode:       w.Barcode,
		Quantity:      w.Quantity,
		DateStart:     apiTime(w.DateStarted),
		DateFinish:    apiTime(w.DateFinished),
		QCDUser:       w.Inspector,
		QCDDateFinish: apiTime(w.InspectionDate),
		QCDAmount:     w.AcceptedAmount,
		QCDDefect:     w.DefectAmount,
		QCDComment:    w.InspectionComment,
	}
}

func toWorkItemsJSON(items []WorkItem) []workItemJSON {
	out := make([]workItemJSON, 0, len(items))
	for _, w := range items {
		out = append(out, toWorkItemJSON(w))
	}
	return out
}

type queueEntryJSON struct {
	workItemJSON
	IsCriticalPriority bool `json:"is_critical_priority"`
}

type bucketJSON struct {
	Identity    string  `json:"identity"`
	Machine     string  `json:"machine_name,omitempty"`
	Date        string  `json:"date,omitempty"`
	Positions   int64   `json:"position_count"`
	Produced    int64   `json:"produced"`
	Accepted    int64   `json:"accepted"`
	Defects     int64   `json:"defects"`
	QualityRate float64 `json:"quality_rate"`
	DefectRate  float64 `json:"defect_rate"`
	Efficiency  float64 `json:"efficiency"`
	DateStart   any     `json:"date_start,omitempty"`
	DateFinish  any     `json:"date_finish,omitempty"`
}

func toBucketsJSON(buckets []AttributionBucket) []bucketJSON {
	out := make([]bucketJSON, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketJSON{
			Identity:    b.Identity,
			Machine:     b.Machine,
			Date:        b.BucketDate,
			Positions:   b.Positions,
			Produced:    b.Produced,
			Accepted:    b.Accepted,
			Defects:     b.Defects,
			QualityRate: b.QualityRate,
			DefectRate:  b.DefectRate,
			Efficiency:  b.Efficiency,
			DateStart:   apiTime(b.FirstDate),
			DateFinish:  apiTime(b.LastDate),
		})
	}
	return out
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	pending, err := s.repo.PendingWorkItems(s.cfg.RetentionCutoff(now))
	if err != nil {
		writeUnavailable(w, err)
		return
	}
	markers, err := s.repo.PriorityMarkers()
	if err != nil {
		writeUnavailable(w, err)
		return
	}

	entries := BuildQueue(pending, PriorityByKey(markers), s.cfg.RetentionCutoff(now), s.cfg.QueueLimit)
	out := make([]queueEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, queueEntryJSON{
			workItemJSON:       toWorkItemJSON(e.WorkItem),
			IsCriticalPriority: e.IsCriticalPriority,
		})
	}
	log.Printf("queue: %d entries, %d critical", len(entries), CountPriority(entries))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	total, err := s.repo.PendingCount(s.cfg.RetentionCutoff(now))
	if err != nil {
		writeUnavailable(w, err)
		return
	}
	today := dayStart(now, s.cfg.Location)
	checkedToday, err := s.repo.InspectedCountBetween(today, today.AddDate(0, 0, 1))
	if err != nil {
		writeUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":         total,
		"checked_today": checkedToday,
		"updated":       now.Format(time.RFC3339),
	})
}

func (s *Server) handleTodayStats(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	today := dayStart(now, s.cfg.Location)
	items, err := s.repo.InspectedBetween(today, today.AddDate(0, 0, 1))
	if err != nil {
		writeUnavailable(w, err)
		return
	}

	// Per-inspector totals for today are a zero-day attribution window.
	agg, err := AggregateAttribution(items, RoleInspector, now, s.cfg.Location, 0, "")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var totalParts int64
	for _, it := range items {
		totalParts += it.Quantity
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_positions": len(items),
		"total_parts":     totalParts,
		"users":           toBucketsJSON(agg.Cumulative),
		"orders":          toWorkItemsJSON(items),
	})
}

func parseDays(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// handleAttribution serves both roles behind one endpoint:
// /api/attribution?role=inspector&days=7 or role=operator&days=30&machine=X.
func (s *Server) handleAttribution(w http.ResponseWriter, r *http.Request) {
	role, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	fallback := s.cfg.InspectorDays
	if role == RoleOperator {
		fallback = s.cfg.OperatorDays
	}
	days, err := parseDays(r, fallback)
	if err != nil {
		writeBadRequest(w, "invalid days parameter")
		return
	}
	s.serveAttribution(w, role, days, r.URL.Query().Get("machine"))
}

func (s *Server) handleEmployeeStats(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, s.cfg.InspectorDays)
	if err != nil {
		writeBadRequest(w, "invalid days parameter")
		return
	}
	s.serveAttribution(w, RoleInspector, days, "")
}

func (s *Server) handleOperatorsStats(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, s.cfg.OperatorDays)
	if err != nil {
		writeBadRequest(w, "invalid days parameter")
		return
	}
	s.serveAttribution(w, RoleOperator, days, r.URL.Query().Get("machine"))
}

func (s *Server) serveAttribution(w http.ResponseWriter, role Role, days int, machine string) {
	if days < 0 {
		writeBadRequest(w, "invalid days parameter: must be >= 0")
		return
	}
	now := s.now()
	start := windowStart(now, s.cfg.Location, days)

	var items []WorkItem
	var err error
	switch role {
	case RoleInspector:
		items, err = s.repo.InspectedSince(start)
	case RoleOperator:
		items, err = s.repo.FinishedSince(start)
	}
	if err != nil {
		writeUnavailable(w, err)
		return
	}

	agg, err := AggregateAttribution(items, role, now, s.cfg.Location, days, machine)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	resp := map[string]any{
		"role":        string(role),
		"period_days": days,
		"daily_stats": toBucketsJSON(agg.Daily),
		"total_stats": toBucketsJSON(agg.Cumulative),
		"summary":     agg.Summary,
	}
	if role == RoleOperator {
		machines, err := s.repo.Machines()
		if err != nil {
			writeUnavailable(w, err)
			return
		}
		if machines == nil {
			machines = []string{}
		}
		resp["machines"] = machines
		analysis := map[string]any{}
		if agg.Best != nil {
			analysis["best_operator"] = toBucketsJSON([]AttributionBucket{*agg.Best})[0]
			analysis["worst_operator"] = toBucketsJSON([]AttributionBucket{*agg.Worst})[0]
			analysis["avg_quality"] = agg.Summary.AvgQuality
		}
		resp["analysis"] = analysis
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	identities, err := s.repo.InspectorIdentities(s.cfg.RosterLimit)
	if err != nil {
		writeUnavailable(w, err)
		return
	}
	type rosterJSON struct {
		EmployeeName string `json:"employee_name"`
		TotalChecks  int64  `json:"total_checks"`
		FirstCheck   any    `json:"first_check"`
		LastCheck    any    `json:"last_check"`
	}
	out := make([]rosterJSON, 0, len(identities))
	for _, id := range identities {
		out = append(out, rosterJSON{
			EmployeeName: id.Identity,
			TotalChecks:  id.TotalChecks,
			FirstCheck:   apiTime(id.FirstCheck),
			LastCheck:    apiTime(id.LastCheck),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEmployeeCheckedParts(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeBadRequest(w, "employee name is required")
		return
	}

	surname := ExtractSurname(name)
	records, err := s.repo.WorkItemsByInspectorPrefix(surname, s.cfg.HistoryLimit)
	if err != nil {
		writeUnavailable(w, err)
		return
	}

	resolved := ResolveInspector(records, name)
	if resolved.Identities == nil {
		resolved.Identities = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_name":      name,
		"surname_used":       resolved.Surname,
		"matched_identities": resolved.Identities,
		"checked_parts":      toWorkItemsJSON(resolved.History),
		"total_count":        len(resolved.History),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"employee_mappings": settings.NameOverrides,
		"hidden_employees":  settings.Hidden,
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid settings payload")
		return
	}
	if in.NameOverrides == nil {
		in.NameOverrides = map[string]string{}
	}
	if in.Hidden == nil {
		in.Hidden = []string{}
	}
	s.settings.Put(in)
	log.Printf("settings saved: %d mappings, %d hidden", len(in.NameOverrides), len(in.Hidden))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
