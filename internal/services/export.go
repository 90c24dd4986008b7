package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/gramseva/apiserver/types"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportArchive is where roster exports are written. Satisfied by
// storage.Storage.
type ExportArchive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// ExportService builds XLSX rosters and archives them in object storage.
type ExportService struct {
	archive ExportArchive
	logger  *zap.Logger
}

func NewExportService(archive ExportArchive, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{archive: archive, logger: logger}
}

// ExportResult points at the archived roster file.
type ExportResult struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Count  int    `json:"count"`
}

var rosterHeader = []any{
	"ID", "Name", "Email", "Phone", "District", "Taluka", "Village",
	"Assigned Area", "Registered By", "Registered At",
}

// ExportRoster writes the role's active roster as an XLSX workbook and
// uploads it under rosters/.
func (s *ExportService) ExportRoster(ctx context.Context, role types.Role, profiles []types.Profile) (ExportResult, error) {
	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	if err := workbook.SetSheetRow(sheet, "A1", &rosterHeader); err != nil {
		return ExportResult{}, err
	}

	deref := func(value *string) string {
		if value == nil {
			return ""
		}
		return *value
	}
	for i, profile := range profiles {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return ExportResult{}, err
		}
		row := []any{
			profile.ID,
			profile.Name,
			profile.Email,
			profile.Phone,
			deref(profile.District),
			deref(profile.Taluka),
			deref(profile.Village),
			deref(profile.AssignedArea),
			profile.RegisteredBy,
			profile.RegisteredAt.Format("2006-01-02 15:04:05"),
		}
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			return ExportResult{}, err
		}
	}

	buffer, err := workbook.WriteToBuffer()
	if err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("rosters/%s-%s.xlsx", roleSlug(role), uuid.NewString())
	data := buffer.Bytes()
	if err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return ExportResult{}, err
	}

	s.logger.Info("roster exported",
		zap.String("role", string(role)),
		zap.String("key", key),
		zap.Int("count", len(profiles)))

	return ExportResult{
		Bucket: s.archive.Bucket(),
		Key:    key,
		Count:  len(profiles),
	}, nil
}

func roleSlug(role types.Role) string {
	return strings.ReplaceAll(strings.ToLower(string(role)), " ", "-")
}
