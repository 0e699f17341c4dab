//go:build !integration

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizmap/internal/dataset"
	"github.com/sells-group/bizmap/internal/model"
)

func newQueryTestCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "query"}
	addQueryFlags(cmd.Flags())
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	return cmd
}

func TestBuildRequest_FlagsOnly(t *testing.T) {
	cmd := newQueryTestCmd(t, map[string]string{
		"province": "서울",
		"district": "강남구",
		"credit":   "AA",
		"search":   "(주)",
		"color-by": "credit",
	})

	req, err := buildRequest(cmd)
	require.NoError(t, err)

	assert.Equal(t, "서울", req.Criteria.Province)
	assert.Equal(t, "강남구", req.Criteria.District)
	assert.Equal(t, "", req.Criteria.SizeClass)
	assert.Equal(t, "AA", req.Criteria.CreditRating)
	assert.Equal(t, "(주)", req.Criteria.SearchText)
	assert.Equal(t, "credit", req.ColorBy)
	assert.Nil(t, req.Clustering)
}

func TestBuildRequest_CriteriaFileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`criteria:
  province: 부산
  company_size_class: 중소기업
color_by: size
clustering:
  enabled: false
`), 0o644))

	cmd := newQueryTestCmd(t, map[string]string{
		"criteria": path,
		"province": "서울",
	})

	req, err := buildRequest(cmd)
	require.NoError(t, err)

	assert.Equal(t, "서울", req.Criteria.Province, "flag overrides file")
	assert.Equal(t, "중소기업", req.Criteria.SizeClass, "file value kept")
	assert.Equal(t, "size", req.ColorBy)
	require.NotNil(t, req.Clustering)
	assert.False(t, req.Clustering.Enabled)
}

func TestBuildRequest_CriteriaFileMissing(t *testing.T) {
	cmd := newQueryTestCmd(t, map[string]string{
		"criteria": filepath.Join(t.TempDir(), "nope.yaml"),
	})

	_, err := buildRequest(cmd)
	assert.Error(t, err)
}

func TestWriteStructured(t *testing.T) {
	v := map[string]any{"count": 2, "province": "서울"}

	tests := []struct {
		format   string
		contains []string
		wantErr  bool
	}{
		{format: formatJSON, contains: []string{`"count": 2`, `"province": "서울"`}},
		{format: "", contains: []string{`"count": 2`}},
		{format: formatYAML, contains: []string{"count: 2", "province: 서울"}},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeStructured(&buf, tt.format, v)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported format")
				return
			}
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestFormatLoadRuns(t *testing.T) {
	started := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	runs := []model.LoadRun{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Status:     model.LoadStatusComplete,
			Stats:      model.LoadStats{RecordsKept: 120, DroppedNoCoords: 3, DroppedOutOfBounds: 2},
			StartedAt:  started,
			FinishedAt: &finished,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.LoadStatusFailed,
			Error:     "source: stat dataset: open companies.xlsx: no such file or directory",
			StartedAt: started.Add(-time.Hour),
		},
		{
			ID:        "short",
			Status:    model.LoadStatusRunning,
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	formatLoadRuns(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "source: stat dataset: open companies...")
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "running")
}

func TestFormatSnapshot(t *testing.T) {
	snap := &dataset.Snapshot{
		Location: "data/companies.xlsx",
		Identity: "data/companies.xlsx@100-1",
		Schema: model.Schema{
			model.ColLatitude:  true,
			model.ColLongitude: true,
			model.ColName:      true,
			model.ColProvince:  true,
		},
		Stats: model.LoadStats{
			RowsRead:         10,
			RecordsKept:      7,
			DroppedNoCoords:  2,
			ProvincesDerived: 7,
		},
		LoadedAt: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	formatSnapshot(&buf, snap)

	out := buf.String()
	assert.Contains(t, out, "data/companies.xlsx@100-1")
	assert.Contains(t, out, "2025-06-15T10:30:00Z")
	assert.Contains(t, out, "latitude, longitude, 한글업체명, sido")
	assert.Regexp(t, `Rows read:\s+10`, out)
	assert.Regexp(t, `Records kept:\s+7`, out)
	assert.Regexp(t, `No coordinates:\s+2`, out)
	assert.Regexp(t, `Provinces derived:\s+7`, out)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abcdefgh", truncateID("abcdefghijkl"))
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "", truncateID(""))
}
