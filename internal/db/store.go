package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dauletbeck/freedom/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) TruncateAll(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `TRUNCATE tickets, managers, business_units, ticket_analysis, assignments RESTART IDENTITY`)
		return err
	})
}

func (s *Store) InsertTickets(ctx context.Context, tickets []models.Ticket) (int64, error) {
	rows := make([][]any, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, []any{t.ID, t.CreatedAt, t.Gender, t.Segment, t.Country, t.Region, t.City, t.Street, t.House, t.Message})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"tickets"},
		[]string{"id", "created_at", "gender", "segment", "country", "region", "city", "street", "house", "message"},
		pgx.CopyFromRows(rows))
}

func (s *Store) InsertManagers(ctx context.Context, managers []models.Manager) (int64, error) {
	rows := make([][]any, 0, len(managers))
	for _, m := range managers {
		rows = append(rows, []any{m.ID, m.Name, m.Position, m.Office, m.Skills, m.CurrentLoad, m.UpdatedAt})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"managers"},
		[]string{"id", "name", "position", "office", "skills", "current_load", "updated_at"},
		pgx.CopyFromRows(rows))
}

func (s *Store) InsertBusinessUnits(ctx context.Context, units []models.BusinessUnit) (int64, error) {
	rows := make([][]any, 0, len(units))
	for _, u := range units {
		rows = append(rows, []any{u.ID, u.Name, u.Address, u.Lat, u.Lon})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"business_units"},
		[]string{"id", "name", "address", "lat", "lon"},
		pgx.CopyFromRows(rows))
}

func (s *Store) ListBusinessUnits(ctx context.Context) ([]models.BusinessUnit, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, COALESCE(address, ''), lat, lon FROM business_units ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BusinessUnit
	for rows.Next() {
		var u models.BusinessUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Address, &u.Lat, &u.Lon); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ListManagers(ctx context.Context, office string, skill string) ([]models.Manager, error) {
	query := `SELECT id, name, position, office, skills, current_load, updated_at FROM managers`
	var args []any
	var wheres []string
	if office != "" {
		args = append(args, office)
		wheres = append(wheres, fmt.Sprintf("office = $%d", len(args)))
	}
	if skill != "" {
		args = append(args, skill)
		wheres = append(wheres, fmt.Sprintf("$%d = ANY(skills)", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY current_load ASC, id ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Manager
	for rows.Next() {
		var m models.Manager
		if err := rows.Scan(&m.ID, &m.Name, &m.Position, &m.Office, &m.Skills, &m.CurrentLoad, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetTicketsForProcessing(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT t.id, t.created_at, t.gender, t.segment, t.country, t.region, t.city, t.street, t.house, t.message
		FROM tickets t
		LEFT JOIN assignments a ON a.ticket_id = t.id
		WHERE a.ticket_id IS NULL
		ORDER BY t.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.Gender, &t.Segment, &t.Country, &t.Region, &t.City, &t.Street, &t.House, &t.Message); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListTickets(ctx context.Context, status, office, language, q string, limit, offset int) ([]map[string]any, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT t.id, t.created_at, t.segment, t.country, t.region, t.city, t.message,
		a.status, a.office, a.manager_id, a.rotation_index, a.reason_code,
		ai.language, ai.priority, ai.type, ai.sentiment
		FROM tickets t
		LEFT JOIN assignments a ON a.ticket_id = t.id
		LEFT JOIN ticket_analysis ai ON ai.ticket_id = t.id`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if office != "" {
		args = append(args, office)
		wheres = append(wheres, fmt.Sprintf("a.office = $%d", len(args)))
	}
	if language != "" {
		args = append(args, language)
		wheres = append(wheres, fmt.Sprintf("ai.language = $%d", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(t.message ILIKE $%d OR t.id ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY t.created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var (
			id            string
			createdAt     time.Time
			segment       string
			country       string
			region        string
			city          string
			message       string
			st            *string
			officeVal     *string
			managerID     *string
			rotationIndex *int
			reasonCode    *string
			lang          *string
			priority      *int
			ticketType    *string
			sentiment     *string
		)
		if err := rows.Scan(&id, &createdAt, &segment, &country, &region, &city, &message,
			&st, &officeVal, &managerID, &rotationIndex, &reasonCode,
			&lang, &priority, &ticketType, &sentiment); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"id":             id,
			"created_at":     createdAt,
			"segment":        segment,
			"country":        country,
			"region":         region,
			"city":           city,
			"message":        message,
			"status":         st,
			"office":         officeVal,
			"manager_id":     managerID,
			"rotation_index": rotationIndex,
			"reason_code":    reasonCode,
			"language":       lang,
			"priority":       priority,
			"type":           ticketType,
			"sentiment":      sentiment,
		})
	}
	return out, rows.Err()
}

func (s *Store) GetTicketDetails(ctx context.Context, ticketID string) (map[string]any, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT t.id, t.created_at, t.gender, t.segment, t.country, t.region, t.city, t.street, t.house, t.message,
			a.ticket_id, a.manager_id, a.office, a.rotation_index, a.status, a.reason_code, a.reason_text, a.assigned_at,
			ai.ticket_id, ai.type, ai.sentiment, ai.priority, ai.language, ai.summary, ai.recommendation,
			ai.client_lat, ai.client_lon, ai.model_version, ai.created_at
		FROM tickets t
		LEFT JOIN assignments a ON a.ticket_id = t.id
		LEFT JOIN ticket_analysis ai ON ai.ticket_id = t.id
		WHERE t.id = $1
	`, ticketID)

	var (
		t             models.Ticket
		aTicketID     *string
		managerID     *string
		aOffice       *string
		rotationIndex *int
		aStatus       *string
		reasonCode    *string
		reasonText    *string
		assignedAt    *time.Time
		aiTicketID    *string
		aiType        *string
		sentiment     *string
		priority      *int
		language      *string
		summary       *string
		rec           *string
		clientLat     *float64
		clientLon     *float64
		modelVersion  *string
		aiCreated     *time.Time
	)

	if err := row.Scan(
		&t.ID, &t.CreatedAt, &t.Gender, &t.Segment, &t.Country, &t.Region, &t.City, &t.Street, &t.House, &t.Message,
		&aTicketID, &managerID, &aOffice, &rotationIndex, &aStatus, &reasonCode, &reasonText, &assignedAt,
		&aiTicketID, &aiType, &sentiment, &priority, &language, &summary, &rec,
		&clientLat, &clientLon, &modelVersion, &aiCreated,
	); err != nil {
		return nil, err
	}

	result := map[string]any{
		"ticket": t,
	}
	if aTicketID != nil {
		result["assignment"] = map[string]any{
			"manager_id":     managerID,
			"office":         aOffice,
			"rotation_index": rotationIndex,
			"status":         aStatus,
			"reason_code":    reasonCode,
			"reason_text":    reasonText,
			"assigned_at":    assignedAt,
		}
	}
	if aiTicketID != nil {
		result["analysis"] = map[string]any{
			"type":           derefString(aiType),
			"sentiment":      derefString(sentiment),
			"priority":       derefInt(priority),
			"language":       derefString(language),
			"summary":        derefString(summary),
			"recommendation": derefString(rec),
			"client_lat":     clientLat,
			"client_lon":     clientLon,
			"model_version":  derefString(modelVersion),
			"created_at":     aiCreated,
		}
	}
	return result, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func (s *Store) UpsertAnalysis(ctx context.Context, tx pgx.Tx, a models.Analysis) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ticket_analysis (ticket_id, type, sentiment, priority, language, summary, recommendation, client_lat, client_lon, model_version, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (ticket_id) DO UPDATE SET
			type = EXCLUDED.type,
			sentiment = EXCLUDED.sentiment,
			priority = EXCLUDED.priority,
			language = EXCLUDED.language,
			summary = EXCLUDED.summary,
			recommendation = EXCLUDED.recommendation,
			client_lat = EXCLUDED.client_lat,
			client_lon = EXCLUDED.client_lon,
			model_version = EXCLUDED.model_version,
			created_at = EXCLUDED.created_at
	`, a.TicketID, a.Type, a.Sentiment, a.Priority, a.Language, a.Summary, a.Recommendation, a.ClientLat, a.ClientLon, a.ModelVersion, a.CreatedAt)
	return err
}

func (s *Store) UpsertAssignment(ctx context.Context, tx pgx.Tx, a models.Assignment, reasoning []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO assignments (ticket_id, manager_id, office, rotation_index, status, reason_code, reason_text, reasoning, assigned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (ticket_id) DO UPDATE SET
			manager_id = EXCLUDED.manager_id,
			office = EXCLUDED.office,
			rotation_index = EXCLUDED.rotation_index,
			status = EXCLUDED.status,
			reason_code = EXCLUDED.reason_code,
			reason_text = EXCLUDED.reason_text,
			reasoning = EXCLUDED.reasoning,
			assigned_at = EXCLUDED.assigned_at
	`, a.TicketID, a.ManagerID, a.Office, a.RotationIndex, a.Status, a.ReasonCode, a.ReasonText, reasoning, a.AssignedAt)
	return err
}

func (s *Store) UpdateManagerLoad(ctx context.Context, tx pgx.Tx, managerID string, delta int) error {
	_, err := tx.Exec(ctx, `UPDATE managers SET current_load = current_load + $1, updated_at = NOW() WHERE id = $2`, delta, managerID)
	return err
}

func (s *Store) CreateRun(ctx context.Context, id string, status string) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, status, started_at) VALUES ($1, $2, NOW())`, id, status)
	return err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (map[string]any, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		id       string
		started  time.Time
		finished *time.Time
		status   string
		summary  []byte
	)
	if err := row.Scan(&id, &started, &finished, &status, &summary); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          id,
		"started_at":  started,
		"finished_at": finished,
		"status":      status,
		"summary":     summary,
	}, nil
}
