// Package files finds KPI data files on disk.
//
// Discovery lists the files the loader can read (CSV, TSV, TXT, XLSX,
// XLSM), newest first, and resolves a directory to its latest file:
//
//	d := files.NewDiscovery(paths.BaseDir)
//	latest, err := d.GetLatestFile("data")
//	if errors.Is(err, files.ErrNoKPIFiles) {
//	    // nothing to load yet
//	}
package files
