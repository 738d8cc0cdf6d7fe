package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the work-item database. The production system owns the data;
// everything here except the insert helpers (used by tests and external
// loaders) is read-only.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS work_items (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		order_number       TEXT NOT NULL DEFAULT '',
		part_name          TEXT NOT NULL DEFAULT '',
		machine_name       TEXT NOT NULL DEFAULT '',
		operator           TEXT NOT NULL DEFAULT '',
		barcode            TEXT NOT NULL DEFAULT '',
		quantity           INTEGER NOT NULL DEFAULT 0,
		date_started       DATETIME,
		date_finished      DATETIME,
		inspector          TEXT DEFAULT '',
		inspection_date    DATETIME,
		accepted_amount    INTEGER DEFAULT 0,
		defect_amount      INTEGER DEFAULT 0,
		inspection_comment TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_work_items_barcode ON work_items(barcode);
	CREATE INDEX IF NOT EXISTS idx_work_items_date_finished ON work_items(date_finished);
	CREATE INDEX IF NOT EXISTS idx_work_items_inspector ON work_items(inspector);
	CREATE INDEX IF NOT EXISTS idx_work_items_inspection_date ON work_items(inspection_date);

	CREATE TABLE IF NOT EXISTS priority_markers (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		barcode      TEXT NOT NULL,
		order_number TEXT NOT NULL DEFAULT '',
		part_name    TEXT NOT NULL DEFAULT '',
		is_priority  BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_priority_markers_barcode ON priority_markers(barcode);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const workItemColumns = `id, order_number, part_name, machine_name, operator, barcode, quantity,
	date_started, date_finished, inspector, inspection_date, accepted_amount, defect_amount, inspection_comment`

func scanWorkItem(rows *sql.Rows) (WorkItem, error) {
	var w WorkItem
	var started, finished, inspected sql.NullTime
	var inspector, comment sql.NullString
	var accepted, defects sql.NullInt64
	err := rows.Scan(
		&w.ID, &w.OrderNumber, &w.PartName, &w.MachineName, &w.Operator,
		&w.Barcode, &w.Quantity, &started, &finished, &inspector,
		&inspected, &accepted, &defects, &comment,
	)
	if err != nil {
		return w, err
	}
	w.DateStarted = started.Time
	w.DateFinished = finished.Time
	w.Inspector = inspector.String
	w.InspectionDate = inspected.Time
	w.AcceptedAmount = accepted.Int64
	w.DefectAmount = defects.Int64
	w.InspectionComment = comment.String
	return w, nil
}

func (s *Store) queryWorkItems(query string, args ...any) ([]WorkItem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// PendingWorkItems returns uninspected items finished on or after cutoff,
// oldest first.
func (s *Store) PendingWorkItems(cutoff time.Time) ([]WorkItem, error) {
	return s.queryWorkItems(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE (inspector IS NULL OR inspector = '')
		   AND date_finished IS NOT NULL
		   AND date_finished >= ?
		   AND quantity > 0
		 ORDER BY date_finished ASC`,
		cutoff,
	)
}

func (s *Store) PriorityMarkers() ([]PriorityMarker, error) {
	rows, err := s.db.Query(`SELECT barcode, order_number, part_name, is_priority FROM priority_markers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []PriorityMarker
	for rows.Next() {
		var m PriorityMarker
		if err := rows.Scan(&m.Barcode, &m.OrderNumber, &m.PartName, &m.IsPriority); err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// WorkItemsByInspectorPrefix returns inspected items whose inspector name
// starts with prefix, newest inspection first. substr keeps the comparison
// case-sensitive regardless of sqlite's LIKE collation.
func (s *Store) WorkItemsByInspectorPrefix(prefix string, limit int) ([]WorkItem, error) {
	return s.queryWorkItems(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE inspector IS NOT NULL AND inspector != ''
		   AND substr(inspector, 1, length(?)) = ?
		   AND inspection_date IS NOT NULL
		 ORDER BY inspection_date DESC, id DESC
		 LIMIT ?`,
		prefix, prefix, limit,
	)
}

// InspectorIdentities lists each distinct inspector with their recorded
// activity span, busiest first.
func (s *Store) InspectorIdentities(limit int) ([]InspectorIdentity, error) {
	rows, err := s.db.Query(
		`SELECT inspector, COUNT(*) as total_checks,
		        MIN(inspection_date), MAX(inspection_date)
		 FROM work_items
		 WHERE inspector IS NOT NULL AND inspector != ''
		   AND inspection_date IS NOT NULL
		 GROUP BY inspector
		 ORDER BY total_checks DESC, inspector ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []InspectorIdentity
	for rows.Next() {
		var id InspectorIdentity
		var first, last sql.NullTime
		if err := rows.Scan(&id.Identity, &id.TotalChecks, &first, &last); err != nil {
			return nil, err
		}
		id.FirstCheck = first.Time
		id.LastCheck = last.Time
		identities = append(identities, id)
	}
	return identities, rows.Err()
}

// InspectedBetween returns items inspected in [from, to), newest first.
func (s *Store) InspectedBetween(from, to time.Time) ([]WorkItem, error) {
	return s.queryWorkItems(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE inspector IS NOT NULL AND inspector != ''
		   AND inspection_date IS NOT NULL
		   AND inspection_date >= ? AND inspection_date < ?
		   AND quantity > 0
		 ORDER BY inspection_date DESC, id DESC`,
		from, to,
	)
}

// InspectedSince feeds the inspector attribution window.
func (s *Store) InspectedSince(since time.Time) ([]WorkItem, error) {
	return s.queryWorkItems(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE inspector IS NOT NULL AND inspector != ''
		   AND inspection_date IS NOT NULL
		   AND inspection_date >= ?
		 ORDER BY inspection_date DESC, id DESC`,
		since,
	)
}

// FinishedSince feeds the operator attribution window.
func (s *Store) FinishedSince(since time.Time) ([]WorkItem, error) {
	return s.queryWorkItems(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE operator IS NOT NULL AND operator != ''
		   AND quantity > 0
		   AND date_finished IS NOT NULL
		   AND date_finished >= ?
		 ORDER BY date_finished DESC, id DESC`,
		since,
	)
}

func (s *Store) Machines() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT machine_name FROM work_items
		 WHERE machine_name IS NOT NULL AND machine_name != ''
		 ORDER BY machine_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var machines []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

func (s *Store) PendingCount(cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM work_items
		 WHERE (inspector IS NULL OR inspector = '')
		   AND date_finished IS NOT NULL
		   AND date_finished >= ?
		   AND quantity > 0`,
		cutoff,
	).Scan(&n)
	return n, err
}

func (s *Store) InspectedCountBetween(from, to time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM work_items
		 WHERE inspector IS NOT NULL AND inspector != ''
		   AND quantity > 0
		   AND inspection_date IS NOT NULL
		   AND inspection_date >= ? AND inspection_date < ?`,
		from, to,
	).Scan(&n)
	return n, err
}

// --- Insert helpers (tests and external loaders) ---

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *Store) InsertWorkItem(w WorkItem) error {
	_, err := s.db.Exec(
		`INSERT INTO work_items (order_number, part_name, machine_name, operator, barcode, quantity,
		   date_started, date_finished, inspector, inspection_date, accepted_amount, defect_amount, inspection_comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.OrderNumber, w.PartName, w.MachineName, w.Operator, w.Barcode, w.Quantity,
		nullTime(w.DateStarted), nullTime(w.DateFinished), w.Inspector,
		nullTime(w.InspectionDate), w.AcceptedAmount, w.DefectAmount, w.InspectionComment,
	)
	return err
}

func (s *Store) InsertWorkItems(items []WorkItem) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO work_items (order_number, part_name, machine_name, operator, barcode, quantity,
		   date_started, date_finished, inspector, inspection_date, accepted_amount, defect_amount, inspection_comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, w := range items {
		_, err := stmt.Exec(
			w.OrderNumber, w.PartName, w.MachineName, w.Operator, w.Barcode, w.Quantity,
			nullTime(w.DateStarted), nullTime(w.DateFinished), w.Inspector,
			nullTime(w.InspectionDate), w.AcceptedAmount, w.DefectAmount, w.InspectionComment,
		)
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

func (s *Store) InsertPriorityMarker(m PriorityMarker) error {
	_, err := s.db.Exec(
		`INSERT INTO priority_markers (barcode, order_number, part_name, is_priority) VALUES (?, ?, ?, ?)`,
		m.Barcode, m.OrderNumber, m.PartName, m.IsPriority,
	)
	return err
}
