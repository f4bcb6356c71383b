// Package export writes availability snapshots to Excel workbooks.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
	"breezbook/internal/service"
)

const (
	colorHeader = "#DDEBF7"
	colorRow    = "#E2EFDA"
	colorFree   = "#C6EFCE"
	colorFull   = "#FFC7CE"
	colorWarn   = "#FFEB9C"
)

// Tenants is the tenant catalogue the workbook covers.
type Tenants interface {
	List(ctx context.Context) ([]models.TenantID, error)
	Load(ctx context.Context, id models.TenantID) (*service.Tenant, error)
}

// Availability computes free slots for one service over a date range.
type Availability interface {
	GetAvailability(ctx context.Context, tenantID models.TenantID, q service.AvailabilityQuery) (*service.AvailabilityResult, error)
}

// AvailabilityWorkbook renders one sheet per tenant: a row per service, a
// column per date and the number of free slots in each cell.
type AvailabilityWorkbook struct {
	tenants      Tenants
	availability Availability
	// chunkDays bounds each availability request.
	chunkDays int
	logger    *zerolog.Logger
}

func NewAvailabilityWorkbook(tenants Tenants, availability Availability, chunkDays int, logger *zerolog.Logger) *AvailabilityWorkbook {
	if chunkDays < 1 {
		chunkDays = models.DefaultMaxRangeDays
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AvailabilityWorkbook{tenants: tenants, availability: availability, chunkDays: chunkDays, logger: logger}
}

// Build renders [from, to] for every tenant. Tenants or services that fail to
// compute are logged and marked rather than aborting the workbook.
func (w *AvailabilityWorkbook) Build(ctx context.Context, from, to calendar.IsoDate) (*excelize.File, error) {
	if from.After(to) {
		return nil, models.Precondition("from", "must not be after to", nil)
	}
	ids, err := w.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	f := excelize.NewFile()
	dates := calendar.DatesBetween(from, to)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := w.writeTenant(ctx, f, id, dates); err != nil {
			w.logger.Error().Err(err).Str("tenant_id", string(id)).Msg("Error exporting tenant")
		}
	}
	if len(ids) > 0 {
		_ = f.DeleteSheet("Sheet1")
	}
	return f, nil
}

// Export builds the workbook for days starting at from and saves it under dir.
func (w *AvailabilityWorkbook) Export(ctx context.Context, dir string, from calendar.IsoDate, days int) (string, error) {
	if days < 1 {
		days = models.DefaultExportDays
	}
	to := from.AddDays(days - 1)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := w.Build(ctx, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, fmt.Sprintf("availability_%s_to_%s.xlsx", from, to))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	w.logger.Info().Str("file_path", filePath).Msg("Availability workbook created")
	return filePath, nil
}

func (w *AvailabilityWorkbook) writeTenant(ctx context.Context, f *excelize.File, id models.TenantID, dates []calendar.IsoDate) error {
	tenant, err := w.tenants.Load(ctx, id)
	if err != nil {
		return err
	}

	sheet := sheetName(id)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	if f.SheetCount == 2 {
		f.SetActiveSheet(index)
	}

	title := fmt.Sprintf("%s: %s - %s", tenant.Name, dates[0], dates[len(dates)-1])
	_ = f.SetCellValue(sheet, "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(len(dates) + 1)
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	columns := writeDateHeaders(f, sheet, dates)

	styles, err := newCountStyles(f)
	if err != nil {
		return err
	}

	unresourceable := 0
	row := 3
	for _, svc := range tenant.Config.Services {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, fmt.Sprintf("%s (%d min)", svc.Name, int(svc.Duration.Minutes())))
		_ = f.SetCellStyle(sheet, cell, cell, styles.row)

		counts, lost, err := w.freeSlots(ctx, id, svc.ID, dates)
		if err != nil {
			w.logger.Warn().Err(err).Str("tenant_id", string(id)).Str("service_id", string(svc.ID)).Msg("Availability not exported")
			end, _ := excelize.CoordinatesToCellName(len(dates)+1, row)
			start, _ := excelize.CoordinatesToCellName(2, row)
			_ = f.SetCellValue(sheet, start, "n/a")
			_ = f.SetCellStyle(sheet, start, end, styles.warn)
			row++
			continue
		}
		if lost > unresourceable {
			unresourceable = lost
		}

		for date, count := range counts {
			col, ok := columns[date]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, count)
			if count == 0 {
				_ = f.SetCellStyle(sheet, cell, cell, styles.full)
			} else {
				_ = f.SetCellStyle(sheet, cell, cell, styles.free)
			}
		}
		row++
	}

	if unresourceable > 0 {
		cell, _ := excelize.CoordinatesToCellName(1, row+1)
		_ = f.SetCellValue(sheet, cell, fmt.Sprintf("Bookings without resources: %d", unresourceable))
		_ = f.SetCellStyle(sheet, cell, cell, styles.warn)
	}

	_ = f.SetColWidth(sheet, "A", "A", 30)
	_ = f.SetColWidth(sheet, "B", lastCol, 12)
	return nil
}

// freeSlots counts slots per date, requesting at most chunkDays at a time.
// lost is the number of existing bookings that no longer fit.
func (w *AvailabilityWorkbook) freeSlots(ctx context.Context, id models.TenantID, svc models.ServiceID, dates []calendar.IsoDate) (map[calendar.IsoDate]int, int, error) {
	counts := make(map[calendar.IsoDate]int, len(dates))
	lost := 0
	for start := 0; start < len(dates); start += w.chunkDays {
		end := min(start+w.chunkDays, len(dates)) - 1
		res, err := w.availability.GetAvailability(ctx, id, service.AvailabilityQuery{
			ServiceID: svc,
			From:      dates[start],
			To:        dates[end],
		})
		if err != nil {
			return nil, 0, err
		}
		for _, day := range res.Days {
			counts[day.Date] = len(day.Slots)
		}
		lost += len(res.Unresourceable)
	}
	return counts, lost, nil
}

func writeDateHeaders(f *excelize.File, sheet string, dates []calendar.IsoDate) map[calendar.IsoDate]int {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	columns := make(map[calendar.IsoDate]int, len(dates))
	for i, date := range dates {
		col := i + 2
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheet, cell, fmt.Sprintf("%s %02d.%02d", date.Weekday().String()[:3], date.Day(), int(date.Month())))
		_ = f.SetCellStyle(sheet, cell, cell, style)
		columns[date] = col
	}
	return columns
}

type countStyles struct {
	row, free, full, warn int
}

func newCountStyles(f *excelize.File) (countStyles, error) {
	fill := func(color string, bold bool) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Font:      &excelize.Font{Bold: bold},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		})
	}

	var s countStyles
	var err error
	if s.row, err = fill(colorRow, true); err != nil {
		return s, err
	}
	if s.free, err = fill(colorFree, false); err != nil {
		return s, err
	}
	if s.full, err = fill(colorFull, false); err != nil {
		return s, err
	}
	if s.warn, err = fill(colorWarn, false); err != nil {
		return s, err
	}
	return s, nil
}

// sheetName trims id to Excel's 31 character limit and drops forbidden characters.
func sheetName(id models.TenantID) string {
	out := make([]rune, 0, len(id))
	for _, r := range string(id) {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			r = '_'
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "tenant"
	}
	return string(out)
}
