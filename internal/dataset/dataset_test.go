package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	apperrors "shipdash/internal/errors"
	"shipdash/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const header = "Year,Year-Month,Market,Region,State,Category,Sub.Category,Express Flag,Ship Mode,Ship Lag,Ship Lag Adjusted,Shipping Cost,Profit Margin,Sales"

var sampleRows = []string{
	"2014,2014-01,US,East,New York,Furniture,Chairs,Express,First Class,1,1,35.5,12.34%,200",
	"2013,2013-06,APAC,Oceania,Queensland,Technology,Phones,Standard,Standard Class,5,4,10,0%,150",
	"2014,2014-02,EU,Central,Bavaria,Office Supplies,Paper,Express,Same Day,0,0,80.25,100%,90",
}

func writeFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func writeSample(t *testing.T) string {
	t.Helper()
	return writeFile(t, "GSD.csv", append([]string{header}, sampleRows...)...)
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0%", want: 0},
		{in: "100%", want: 100},
		{in: "12.34%", want: 12.34},
		{in: "-7.5%", want: -7.5},
		{in: " 3.2 % ", want: 3.2},
		{in: "12.34", wantErr: true},
		{in: "", wantErr: true},
		{in: "%", wantErr: true},
		{in: "abc%", wantErr: true},
		{in: "NaN%", wantErr: true},
		{in: "12.3.4%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePercent(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader(writeSample(t))

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Records, 3)

	want := models.Record{
		Year:            2014,
		YearMonth:       "2014-01",
		Market:          "US",
		Region:          "East",
		State:           "New York",
		Category:        "Furniture",
		SubCategory:     "Chairs",
		ExpressFlag:     models.FlagExpress,
		ShipMode:        "First Class",
		ShipLag:         1,
		ShipLagAdjusted: 1,
		ShippingCost:    35.5,
		ProfitMargin:    12.34,
	}
	if diff := cmp.Diff(want, ds.Records[0]); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0.0, ds.Records[1].ProfitMargin)
	assert.Equal(t, 100.0, ds.Records[2].ProfitMargin)

	assert.Equal(t, models.FilterOptions{
		Years:        []int{2013, 2014},
		Markets:      []string{"APAC", "EU", "US"},
		Regions:      []string{"Central", "East", "Oceania"},
		ExpressFlags: []string{"Express", "Standard"},
	}, ds.Options)
	assert.False(t, ds.FromCache)
}

func TestLoader_LoadsOnce(t *testing.T) {
	loader := NewLoader(writeSample(t))

	var wg sync.WaitGroup
	results := make([]*Dataset, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := loader.Load(context.Background())
			assert.NoError(t, err)
			results[i] = ds
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), loader.Parses())
	for _, ds := range results {
		assert.Same(t, results[0], ds)
	}

	again, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], again)
	assert.Equal(t, 12.34, again.Records[0].ProfitMargin, "margins are normalized exactly once")
}

func TestLoader_HeaderVariants(t *testing.T) {
	path := writeFile(t, "variants.csv",
		"\ufeffyear,year_month,MARKET,region,state,category,sub-category,express_flag,ship_mode,ship lag,Ship.Lag.Adjusted,shipping_cost,Profit Margin",
		"2012,2012-03,LATAM,South,Texas,Technology,Copiers,true,First Class,2,2,9,5%",
		"2012,2012-04,LATAM,South,Texas,Technology,Copiers,0,First Class,2,2,9,5%",
	)

	ds, err := NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, 2012, ds.Records[0].Year)
	assert.Equal(t, "Copiers", ds.Records[0].SubCategory)
	assert.Equal(t, models.FlagExpress, ds.Records[0].ExpressFlag)
	assert.Equal(t, models.FlagStandard, ds.Records[1].ExpressFlag)
}

func TestLoader_MissingColumn(t *testing.T) {
	path := writeFile(t, "missing.csv",
		"Year,Year-Month,Market,Region,State,Category,Sub.Category,Ship Mode,Ship Lag,Ship Lag Adjusted,Shipping Cost,Profit Margin",
		"2014,2014-01,US,East,New York,Furniture,Chairs,First Class,1,1,35.5,12%",
	)

	_, err := NewLoader(path).Load(context.Background())

	var missing *apperrors.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Express Flag", missing.Column)
}

func TestLoader_MalformedValue(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
	}{
		{"margin without percent", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,35.5,12.5,1", "Profit Margin"},
		{"text margin", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,35.5,n/a%,1", "Profit Margin"},
		{"bad year", "20x4,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,35.5,12%,1", "Year"},
		{"bad flag", "2014,2014-01,US,East,NY,Furniture,Chairs,Overnight,First Class,1,1,35.5,12%,1", "Express Flag"},
		{"bad cost", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,cheap,12%,1", "Shipping Cost"},
		{"NaN ship lag", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,NaN,1,35.5,12%,1", "Ship Lag"},
		{"Inf ship lag", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,Inf,1,35.5,12%,1", "Ship Lag"},
		{"NaN ship lag adjusted", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,NaN,35.5,12%,1", "Ship Lag Adjusted"},
		{"-Inf ship lag adjusted", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,-Inf,35.5,12%,1", "Ship Lag Adjusted"},
		{"NaN cost", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,NaN,12%,1", "Shipping Cost"},
		{"+Inf cost", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,+Inf,12%,1", "Shipping Cost"},
		{"NaN margin", "2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,35.5,NaN%,1", "Profit Margin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", header, sampleRows[0], sampleRows[1], tt.row)

			_, err := NewLoader(path).Load(context.Background())

			var malformed *apperrors.MalformedValueError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 3, malformed.Row)
			assert.Equal(t, tt.column, malformed.Column)
		})
	}
}

func TestLoader_HeaderOnly(t *testing.T) {
	ds, err := NewLoader(writeFile(t, "empty.csv", header)).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Empty(t, ds.Options.Years)
}

func TestLoader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewLoader(path).Load(context.Background())
	assert.ErrorContains(t, err, "empty file")
}

func TestLoader_FileNotFound(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeSample(t)
	loader := NewLoader(path)
	_, err := loader.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = loader.Load(context.Background())
	assert.ErrorIs(t, err, context.Canceled, "the first failure is memoized")
	assert.Equal(t, int64(1), loader.Parses())

	ds, err := NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Records, len(sampleRows))
}

func TestLoader_Cache(t *testing.T) {
	path := writeSample(t)
	cacheDir := t.TempDir()

	first := NewLoader(path, WithCacheDir(cacheDir))
	ds1, err := first.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ds1.FromCache)
	assert.FileExists(t, cacheFilename(cacheDir, path))

	second := NewLoader(path, WithCacheDir(cacheDir))
	ds2, err := second.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ds2.FromCache)
	assert.Equal(t, int64(0), second.Parses())
	assert.Equal(t, ds1.Records, ds2.Records)
	assert.Equal(t, ds1.Options, ds2.Options)
}

func TestLoader_StaleCacheIgnored(t *testing.T) {
	path := writeSample(t)
	cacheDir := t.TempDir()

	_, err := NewLoader(path, WithCacheDir(cacheDir)).Load(context.Background())
	require.NoError(t, err)

	lines := append([]string{header}, sampleRows[:2]...)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	reload := NewLoader(path, WithCacheDir(cacheDir))
	ds, err := reload.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ds.FromCache)
	assert.Len(t, ds.Records, 2)
	assert.Equal(t, int64(1), reload.Parses())
}

func TestLoader_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]string{strings.Split(header, ",")}
	for _, r := range sampleRows {
		rows = append(rows, strings.Split(r, ","))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	path := filepath.Join(t.TempDir(), "GSD.xlsx")
	require.NoError(t, f.SaveAs(path))

	ds, err := NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, "Chairs", ds.Records[0].SubCategory)
	assert.Equal(t, 12.34, ds.Records[0].ProfitMargin)
	assert.Equal(t, 80.25, ds.Records[2].ShippingCost)
}

func TestLoader_WithWorkers(t *testing.T) {
	path := writeSample(t)

	serial := NewLoader(path, WithWorkers(1))
	assert.Equal(t, 1, serial.workers)
	assert.Equal(t, maxWorkers, NewLoader(path, WithWorkers(0)).workers)

	want, err := NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	got, err := serial.Load(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(want.Records, got.Records); diff != "" {
		t.Errorf("records differ by worker count (-default +serial):\n%s", diff)
	}
}

func TestParseRows_ReportsLowestRow(t *testing.T) {
	idx, err := bindHeader(strings.Split(header, ","))
	require.NoError(t, err)

	good := strings.Split(sampleRows[0], ",")
	bad := strings.Split("2014,2014-01,US,East,NY,Furniture,Chairs,Express,First Class,1,1,35.5,oops,1", ",")

	rows := make([][]string, batchSize*2+5)
	for i := range rows {
		rows[i] = good
	}
	rows[batchSize+3] = bad
	rows[batchSize*2+1] = bad

	_, err = parseRows(context.Background(), rows, idx, 4)

	var malformed *apperrors.MalformedValueError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, batchSize+4, malformed.Row)
}

func TestParseRows_PreservesOrder(t *testing.T) {
	idx, err := bindHeader(strings.Split(header, ","))
	require.NoError(t, err)

	rows := make([][]string, batchSize+10)
	for i := range rows {
		row := strings.Split(sampleRows[0], ",")
		row[0] = "2000"
		if i%2 == 1 {
			row[0] = "2001"
		}
		rows[i] = row
	}

	records, err := parseRows(context.Background(), rows, idx, 3)
	require.NoError(t, err)
	for i, rec := range records {
		want := 2000 + i%2
		if rec.Year != want {
			t.Fatalf("record %d: got year %d, want %d", i, rec.Year, want)
		}
	}
}

func TestFromRecords(t *testing.T) {
	ds := FromRecords([]models.Record{{Year: 2011, Market: "US", Region: "West", ExpressFlag: "Express"}})
	assert.Equal(t, []int{2011}, ds.Options.Years)
	assert.Equal(t, "memory", ds.Source)
}
