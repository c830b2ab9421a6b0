// Package population loads the spirometry population file, keeps the current
// copy in memory and reloads it when the file changes on disk.
//
// The file is a CSV or XLSX table whose header names the export columns;
// extra columns are ignored. A subject with an empty cell in any export column
// is kept but marked incomplete, and incomplete subjects never pass a filter.
package population
