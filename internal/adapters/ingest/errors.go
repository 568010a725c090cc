package ingest

import "errors"

var (
	// ErrDownload is returned when the archive cannot be fetched.
	ErrDownload = errors.New("archive download failed")
	// ErrNoCSV is returned when the archive holds no .csv file.
	ErrNoCSV = errors.New("archive contains no csv file")
	// ErrMissingColumns is returned when the csv header lacks a required column.
	ErrMissingColumns = errors.New("required columns missing")
)
