package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/dto"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const (
	importColName        = "name"
	importColEmail       = "email"
	importColPhone       = "phone"
	importColMaxPerDay   = "max_hours_per_day"
	importColMaxPerWeek  = "max_hours_per_week"
	importColSubjects    = "subjects"
	importColDays        = "available_days"
	importListSeparator  = "|"
	importMaxHoursPerDay = 24
)

var importHeaderAliases = map[string]string{
	"name":               importColName,
	"nombre":             importColName,
	"email":              importColEmail,
	"correo":             importColEmail,
	"phone":              importColPhone,
	"numero":             importColPhone,
	"telefono":           importColPhone,
	"max_hours_per_day":  importColMaxPerDay,
	"horas_max_dia":      importColMaxPerDay,
	"max_hours_per_week": importColMaxPerWeek,
	"horas_max_semana":   importColMaxPerWeek,
	"subjects":           importColSubjects,
	"materias":           importColSubjects,
	"available_days":     importColDays,
	"dias_disponibles":   importColDays,
}

var importDayNames = map[string]int{
	"monday": 0, "mon": 0, "lunes": 0,
	"tuesday": 1, "tue": 1, "martes": 1,
	"wednesday": 2, "wed": 2, "miercoles": 2, "miércoles": 2,
	"thursday": 3, "thu": 3, "jueves": 3,
	"friday": 4, "fri": 4, "viernes": 4,
	"saturday": 5, "sat": 5, "sabado": 5, "sábado": 5,
}

type teacherImportRow struct {
	Line    int
	Request dto.CreateTeacherRequest
}

type teacherImporter struct {
	subjects subjectLookup
	resolved map[string]string
}

func newTeacherImporter(subjects subjectLookup) *teacherImporter {
	return &teacherImporter{subjects: subjects, resolved: make(map[string]string)}
}

// Parse reads CSV rows into create requests. Row-level problems are returned as
// ImportRowError values; only unreadable input or missing columns fail the call.
func (i *teacherImporter) Parse(ctx context.Context, r io.Reader) ([]teacherImportRow, []dto.ImportRowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "import file is empty")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid csv header")
	}
	columns := mapImportHeader(header)
	var missing []string
	for _, required := range []string{importColName, importColEmail} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "missing required columns: "+strings.Join(missing, ", "))
	}

	var rows []teacherImportRow
	var rowErrors []dto.ImportRowError
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read csv")
			}
			rowErrors = append(rowErrors, dto.ImportRowError{Line: parseErr.StartLine, Message: parseErr.Err.Error()})
			continue
		}
		line, _ := reader.FieldPos(0)
		if lo.EveryBy(record, func(field string) bool { return strings.TrimSpace(field) == "" }) {
			continue
		}
		req, err := i.buildRequest(ctx, columns, record)
		if err != nil {
			rowErrors = append(rowErrors, dto.ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		rows = append(rows, teacherImportRow{Line: line, Request: req})
	}
	return rows, rowErrors, nil
}

func mapImportHeader(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for idx, raw := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := importHeaderAliases[key]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = idx
			}
		}
	}
	return columns
}

func (i *teacherImporter) buildRequest(ctx context.Context, columns map[string]int, record []string) (dto.CreateTeacherRequest, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	req := dto.CreateTeacherRequest{Name: field(importColName), Email: field(importColEmail)}
	if req.Name == "" {
		return req, fmt.Errorf("name is required")
	}
	if req.Email == "" {
		return req, fmt.Errorf("email is required")
	}
	if phone := field(importColPhone); phone != "" {
		req.Phone = &phone
	}
	// Unreadable caps fall back to the service default.
	if value, err := strconv.Atoi(field(importColMaxPerDay)); err == nil && value >= 0 && value <= importMaxHoursPerDay {
		req.MaxHoursPerDay = &value
	}
	if value, err := strconv.Atoi(field(importColMaxPerWeek)); err == nil && value >= 0 {
		req.MaxHoursPerWeek = &value
	}

	days, err := parseImportDays(field(importColDays))
	if err != nil {
		return req, err
	}
	req.AvailableDays = days

	for _, name := range splitImportList(field(importColSubjects)) {
		id, err := i.resolveSubject(ctx, name)
		if err != nil {
			return req, err
		}
		req.SubjectIDs = append(req.SubjectIDs, id)
	}
	req.SubjectIDs = lo.Uniq(req.SubjectIDs)
	return req, nil
}

func (i *teacherImporter) resolveSubject(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)
	if id, ok := i.resolved[key]; ok {
		return id, nil
	}
	subject, err := i.subjects.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("unknown subject %q", name)
		}
		return "", fmt.Errorf("lookup subject %q: %w", name, err)
	}
	i.resolved[key] = subject.ID
	return subject.ID, nil
}

func parseImportDays(raw string) ([]int, error) {
	var days []int
	for _, token := range splitImportList(raw) {
		if value, err := strconv.Atoi(token); err == nil {
			if value < 0 || value > 5 {
				return nil, fmt.Errorf("weekday %d outside 0-5", value)
			}
			days = append(days, value)
			continue
		}
		day, ok := importDayNames[strings.ToLower(token)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", token)
		}
		days = append(days, day)
	}
	return lo.Uniq(days), nil
}

func splitImportList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, importListSeparator)
	return lo.Compact(lo.Map(parts, func(part string, _ int) string { return strings.TrimSpace(part) }))
}
