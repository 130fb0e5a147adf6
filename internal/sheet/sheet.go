// Package sheet reads raw question rows from the Google Sheets source.
// Each category lives on its own sheet tab; rows come back as untyped 2-D
// string data and are interpreted positionally by the mixer.
package sheet

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ngochuy/onthisu/internal/model"
)

// ErrSourceUnavailable wraps any category fetch failure. A batch with one
// failed category fails as a whole; partial results are never mixed.
var ErrSourceUnavailable = errors.New("question source unavailable")

// RowSource fetches raw rows for one category.
type RowSource interface {
	Rows(ctx context.Context, cat model.Category) ([][]string, error)
}

// FetchAll fetches the rows of all four categories concurrently and joins
// them before returning. Any single failure aborts the batch with
// ErrSourceUnavailable.
func FetchAll(ctx context.Context, src RowSource) (map[model.Category][][]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([][][]string, len(model.Categories()))
	for i, cat := range model.Categories() {
		g.Go(func() error {
			rows, err := src.Rows(gctx, cat)
			if err != nil {
				return fmt.Errorf("%w: %q: %w", ErrSourceUnavailable, cat, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make(map[model.Category][][]string, len(results))
	for i, cat := range model.Categories() {
		all[cat] = results[i]
	}
	return all, nil
}

// Service reads question rows from one spreadsheet through the Sheets API.
type Service struct {
	api           *sheets.Service
	spreadsheetID string
}

// NewService builds a read-only Sheets client from service account
// credential JSON.
func NewService(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*Service, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}
	api, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &Service{api: api, spreadsheetID: spreadsheetID}, nil
}

// Rows returns the raw rows of one category's sheet tab. A tab with no
// values yields an empty slice, not an error.
func (s *Service) Rows(ctx context.Context, cat model.Category) ([][]string, error) {
	readRange := fmt.Sprintf("%s!%s", cat, model.ColumnRange(cat))
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %q: %w", readRange, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, c := range raw {
			row[i] = fmt.Sprint(c)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
