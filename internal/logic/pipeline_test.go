package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmohaa/medal-forecast/internal/models"
)

const workedExample = "year;country;gold;silver;bronze;total\n" +
	"2016;A;10;5;3;18\n" +
	"2018;A;12;6;4;22\n" +
	"2020;A;14;8;5;27\n"

func featuresFromText(t *testing.T, text string, k int) map[string]models.FeatureVector {
	t.Helper()
	table, err := ParseTable(text)
	require.NoError(t, err)
	histories, err := Aggregate(table)
	require.NoError(t, err)
	return ExtractFeatures(histories, k)
}

func TestPipeline_WorkedExample(t *testing.T) {
	features := featuresFromText(t, workedExample, 3)

	require.Contains(t, features, "A")
	assert.Equal(t, models.FeatureVector{
		Entity: "A", Periods: 3, Gold: 36, Silver: 19, Bronze: 12, Total: 67, Momentum: 9,
	}, features["A"])

	forecasts := BaselinePredict(features)
	require.Len(t, forecasts, 1)
	assert.Equal(t, models.Forecast{
		Entity: "A", PredictedGold: 38, PredictedSilver: 20, PredictedBronze: 13, PredictedTotal: 71,
	}, forecasts[0])
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable("\ufeffYear, Country ;Gold\r\n\r\n  \n2020;FRA ; 3\r\n2021,,4\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"Year", "Country", "Gold"}, table.Header)
	assert.Equal(t, [][]string{{"2020", "FRA", "3"}, {"2021", "", "4"}}, table.Rows)
}

func TestParseTable_Empty(t *testing.T) {
	for _, text := range []string{"", "\n\n", " \r\n\t\n"} {
		_, err := ParseTable(text)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, "input %q", text)
	}
}

func TestAggregate_HeaderOnly(t *testing.T) {
	table, err := ParseTable("year;country;gold;silver;bronze;total\n")
	require.NoError(t, err)

	_, err = Aggregate(table)
	var de *DataError
	assert.ErrorAs(t, err, &de)
	assert.True(t, IsLoadFailure(err))
}

func TestAggregate_MissingColumns(t *testing.T) {
	table, err := ParseTable("year;country;gold\n2020;FRA;1\n")
	require.NoError(t, err)

	_, err = Aggregate(table)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "silver")
	assert.Contains(t, se.Reason, "bronze")
}

func TestAggregate_ColumnAliases(t *testing.T) {
	table, err := ParseTable("Edition,NOC,Gold Medal,Silver,Bronze\n2012,USA,46,28,29\n")
	require.NoError(t, err)

	histories, err := Aggregate(table)
	require.NoError(t, err)
	require.Contains(t, histories, "USA")

	// Total is derived when the column is absent
	assert.Equal(t, 103, histories["USA"].Records[0].Total)
}

func TestAggregate_RowFiltering(t *testing.T) {
	text := "year;country;gold;silver;bronze;total\n" +
		"2016;;1;1;1;3\n" + // no entity
		"abc;B;1;1;1;3\n" + // no period
		"0;B;1;1;1;3\n" +
		"2016;B;x;-2;1;\n" + // bad counts become zero, total summed
		"2012;B;1;2;3;6\n"

	table, err := ParseTable(text)
	require.NoError(t, err)
	histories, err := Aggregate(table)
	require.NoError(t, err)

	require.Len(t, histories, 1)
	records := histories["B"].Records
	require.Len(t, records, 2)
	assert.Equal(t, 2012, records[0].Period)
	assert.Equal(t, models.Record{Entity: "B", Period: 2016, Gold: 0, Silver: 0, Bronze: 1, Total: 1}, records[1])
}

func TestAggregate_DuplicatePeriodLastWins(t *testing.T) {
	text := "year;country;gold;silver;bronze;total\n" +
		"2020;A;1;0;0;1\n" +
		"2016;A;5;0;0;5\n" +
		"2020;A;2;0;0;2\n"

	table, err := ParseTable(text)
	require.NoError(t, err)
	histories, err := Aggregate(table)
	require.NoError(t, err)

	records := histories["A"].Records
	require.Len(t, records, 2)
	assert.Equal(t, 2016, records[0].Period)
	assert.Equal(t, 2, records[1].Gold)
	assert.Equal(t, 2, CountRecords(histories))
}

func TestExtractFeatures_Window(t *testing.T) {
	text := "year;country;gold;silver;bronze;total\n" +
		"2008;A;1;1;1;3\n" +
		"2012;A;2;2;2;6\n" +
		"2016;A;3;3;3;9\n" +
		"2020;B;4;0;0;4\n"

	t.Run("K=2", func(t *testing.T) {
		features := featuresFromText(t, text, 2)
		assert.Equal(t, 15, features["A"].Total)
		assert.Equal(t, 3, features["A"].Momentum)
		assert.Equal(t, 2, features["A"].Periods)
	})

	t.Run("K=3 over five records", func(t *testing.T) {
		five := "year;country;gold;silver;bronze;total\n" +
			"2004;C;1;0;0;1\n" +
			"2008;C;2;1;1;4\n" +
			"2012;C;3;2;2;7\n" +
			"2016;C;1;1;0;2\n" +
			"2020;C;5;3;3;11\n"
		features := featuresFromText(t, five, 3)

		fv := features["C"]
		assert.Equal(t, 3, fv.Periods)
		assert.Equal(t, 7+2+11, fv.Total)
		assert.Equal(t, 3+1+5, fv.Gold)
		assert.Equal(t, 11-7, fv.Momentum)
	})

	t.Run("single record has zero momentum", func(t *testing.T) {
		features := featuresFromText(t, text, 3)
		assert.Equal(t, 0, features["B"].Momentum)
		assert.Equal(t, 1, features["B"].Periods)
	})

	t.Run("K below one behaves as one", func(t *testing.T) {
		features := featuresFromText(t, text, 0)
		assert.Equal(t, 9, features["A"].Total)
		assert.Equal(t, 0, features["A"].Momentum)
	})
}

func TestBaselinePredict_NegativeMomentumIgnored(t *testing.T) {
	features := map[string]models.FeatureVector{
		"A": {Entity: "A", Gold: 5, Silver: 5, Bronze: 0, Total: 10, Momentum: -6},
	}
	forecasts := BaselinePredict(features)
	assert.Equal(t, 10, forecasts[0].PredictedTotal)
	assert.Equal(t, 5, forecasts[0].PredictedGold)
	assert.Equal(t, 5, forecasts[0].PredictedSilver)
	assert.Equal(t, 0, forecasts[0].PredictedBronze)
}

func TestBaselinePredict_DeterministicOrder(t *testing.T) {
	features := map[string]models.FeatureVector{
		"C": {Entity: "C", Gold: 1, Total: 4},
		"A": {Entity: "A", Gold: 1, Total: 4},
		"B": {Entity: "B", Gold: 1, Total: 9},
		"D": {Entity: "D", Gold: 1, Total: 1},
	}

	first := BaselinePredict(features)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BaselinePredict(features))
	}

	var order []string
	for _, f := range first {
		order = append(order, f.Entity)
	}
	assert.Equal(t, []string{"B", "A", "C", "D"}, order)
}

func TestSplitByShare_SumsToTotal(t *testing.T) {
	cases := []struct {
		name  string
		total int
		fv    models.FeatureVector
		want  [3]int
	}{
		{"worked example", 71, models.FeatureVector{Gold: 36, Silver: 19, Bronze: 12}, [3]int{38, 20, 13}},
		{"two halves round up", 1, models.FeatureVector{Gold: 1, Silver: 1}, [3]int{1, 0, 0}},
		{"no medals in window", 7, models.FeatureVector{}, [3]int{0, 0, 7}},
		{"zero total", 0, models.FeatureVector{Gold: 3, Silver: 2, Bronze: 1}, [3]int{0, 0, 0}},
		{"gold only", 5, models.FeatureVector{Gold: 4}, [3]int{5, 0, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := SplitByShare("X", tc.total, tc.fv)
			assert.Equal(t, tc.want, [3]int{f.PredictedGold, f.PredictedSilver, f.PredictedBronze})
			assert.Equal(t, tc.total, f.PredictedGold+f.PredictedSilver+f.PredictedBronze)
			assert.GreaterOrEqual(t, f.PredictedBronze, 0)
		})
	}
}

func TestBaselinePredict_Pure(t *testing.T) {
	features := featuresFromText(t, workedExample, 3)
	snapshot := features["A"]

	BaselinePredict(features)
	BaselinePredict(features)

	assert.Equal(t, snapshot, features["A"])
	assert.Len(t, features, 1)
}
