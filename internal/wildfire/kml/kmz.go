package kml

import (
	"archive/zip"
	"fmt"
	"os"
)

// CreateKMZ creates path as a KMZ archive (a zip file containing a single
// "doc.kml" entry) and returns a Writer streaming into that entry, plus a
// close function that finishes the KML document, the zip entry, and the
// underlying file, in that order.
func CreateKMZ(path string) (kw *Writer, closeAll func() error, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("wildfire kml: create %s: %w", path, err)
	}

	zw := zip.NewWriter(f)
	entry, err := zw.Create("doc.kml")
	if err != nil {
		zw.Close()
		f.Close()
		return nil, nil, fmt.Errorf("wildfire kml: create doc.kml entry: %w", err)
	}

	kw, err = NewWriter(entry)
	if err != nil {
		zw.Close()
		f.Close()
		return nil, nil, err
	}

	closeAll = func() error {
		if err := kw.Close(); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("wildfire kml: close zip: %w", err)
		}
		return f.Close()
	}
	return kw, closeAll, nil
}

// CreateKML creates path as a plain (uncompressed) .kml file and returns a
// Writer, plus a close function that finishes the document and the file.
func CreateKML(path string) (kw *Writer, closeAll func() error, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("wildfire kml: create %s: %w", path, err)
	}

	kw, err = NewWriter(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	closeAll = func() error {
		if err := kw.Close(); err != nil {
			return err
		}
		return f.Close()
	}
	return kw, closeAll, nil
}
