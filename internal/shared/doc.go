// Package shared holds code used across the kpidash packages that belongs
// to no single layer.
//
// The testutil subpackage provides the KPI file fixtures (SampleCSV,
// KPIFixtures) and a buffered slog handler for asserting on log output:
//
//	func TestLoad(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path, _ := testutil.NewKPIFixtures(t.TempDir()).WriteSample("kpi.csv")
//	    // ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset loaded")
//	}
package shared
