package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/dauletbeck/freedom/internal/geo"
	"github.com/dauletbeck/freedom/internal/models"
)

func parseTicketsCSV(file *multipart.FileHeader) ([]models.Ticket, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.Ticket

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		id := getFieldAny(rec, index, "id", "guid", "guid клиента", "client_guid")
		createdAtStr := getFieldAny(rec, index, "created_at", "created", "дата", "дата создания")
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			createdAt = time.Now().UTC()
		}
		if id == "" {
			errs = append(errs, "ticket guid required")
			continue
		}

		t := models.Ticket{
			ID:        id,
			CreatedAt: createdAt,
			Gender:    getFieldAny(rec, index, "gender", "пол клиента"),
			Segment:   normalizeSegment(getFieldAny(rec, index, "segment", "сегмент клиента")),
			Country:   getFieldAny(rec, index, "country", "страна"),
			Region:    getFieldAny(rec, index, "region", "область"),
			City:      getFieldAny(rec, index, "city", "город", "населённый пункт", "населенный пункт"),
			Street:    getFieldAny(rec, index, "street", "улица"),
			House:     getFieldAny(rec, index, "house", "дом"),
			Message:   getFieldAny(rec, index, "message", "описание", "description", "текст"),
		}
		out = append(out, t)
	}
	return out, errs
}

func parseManagersCSV(file *multipart.FileHeader) ([]models.Manager, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.Manager

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		id := getFieldAny(rec, index, "id", "manager_id")
		name := getFieldAny(rec, index, "name", "фио")
		office := getFieldAny(rec, index, "office", "офис")
		position := getFieldAny(rec, index, "position", "role", "должность")
		skillsRaw := getFieldAny(rec, index, "skills", "навыки")
		loadStr := getFieldAny(rec, index, "current_load", "количество обращений в работе")
		load, _ := strconv.Atoi(loadStr)

		if id == "" {
			id = fmt.Sprintf("MGR-%03d", len(out)+1)
		}
		m := models.Manager{
			ID:          id,
			Name:        name,
			Position:    position,
			Office:      office,
			Skills:      splitSkills(skillsRaw),
			CurrentLoad: load,
			UpdatedAt:   time.Now().UTC(),
		}
		if m.Name == "" {
			errs = append(errs, "manager name required")
			continue
		}
		out = append(out, m)
	}
	return out, errs
}

func parseBusinessUnitsCSV(file *multipart.FileHeader) ([]models.BusinessUnit, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.BusinessUnit

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		id := getFieldAny(rec, index, "id", "office_id")
		name := getFieldAny(rec, index, "name", "office", "office_name", "офис")
		address := getFieldAny(rec, index, "address", "адрес")
		lat, _ := strconv.ParseFloat(getFieldAny(rec, index, "lat", "latitude"), 64)
		lon, _ := strconv.ParseFloat(getFieldAny(rec, index, "lon", "longitude"), 64)

		// The import may carry no coordinates; the static catalog is
		// the source of truth for branch positions.
		if lat == 0 && lon == 0 {
			if c, ok := geo.OfficeCoord(name); ok {
				lat, lon = c.Lat, c.Lon
			}
		}
		if id == "" {
			id = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
			if id == "" {
				id = fmt.Sprintf("office-%d", len(out)+1)
			}
		}

		u := models.BusinessUnit{
			ID:      id,
			Name:    name,
			Address: address,
			Lat:     lat,
			Lon:     lon,
		}
		if u.Name == "" {
			errs = append(errs, "business unit name required")
			continue
		}
		out = append(out, u)
	}
	return out, errs
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func splitSkills(raw string) []string {
	raw = strings.ReplaceAll(raw, ";", ",")
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSegment(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "":
		return "Mass"
	case strings.Contains(v, "vip"):
		return "VIP"
	case strings.Contains(v, "priority") || strings.Contains(v, "приоритет"):
		return "Priority"
	default:
		return strings.TrimSpace(value)
	}
}
