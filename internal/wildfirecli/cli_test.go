package wildfirecli

import (
	"testing"
	"time"
)

func TestParseScanTime(t *testing.T) {
	got, err := ParseScanTime("2024-08-01-13")
	if err != nil {
		t.Fatalf("ParseScanTime: %v", err)
	}
	want := time.Date(2024, 8, 1, 13, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseScanTime = %v, want %v", got, want)
	}
}

func TestParseScanTimeRejectsBadLayout(t *testing.T) {
	if _, err := ParseScanTime("2024-08-01"); err == nil {
		t.Fatal("expected error for missing hour component, got nil")
	}
}

func TestParseBoundingBoxEmptyIsGlobal(t *testing.T) {
	box, err := ParseBoundingBox("")
	if err != nil {
		t.Fatalf("ParseBoundingBox: %v", err)
	}
	if box.LL.Lat != -90 || box.LL.Lon != -180 || box.UR.Lat != 90 || box.UR.Lon != 180 {
		t.Errorf("ParseBoundingBox(\"\") = %v, want global box", box)
	}
}

func TestParseBoundingBoxValid(t *testing.T) {
	box, err := ParseBoundingBox("30,-120,45,-100")
	if err != nil {
		t.Fatalf("ParseBoundingBox: %v", err)
	}
	if box.LL.Lat != 30 || box.LL.Lon != -120 || box.UR.Lat != 45 || box.UR.Lon != -100 {
		t.Errorf("ParseBoundingBox = %v, want (30,-120)-(45,-100)", box)
	}
}

func TestParseBoundingBoxRejectsInvertedAxes(t *testing.T) {
	if _, err := ParseBoundingBox("45,-120,30,-100"); err == nil {
		t.Fatal("expected error for min_lat >= max_lat, got nil")
	}
	if _, err := ParseBoundingBox("30,-100,45,-120"); err == nil {
		t.Fatal("expected error for min_lon >= max_lon, got nil")
	}
}

func TestParseBoundingBoxRejectsOutOfRange(t *testing.T) {
	if _, err := ParseBoundingBox("-95,-120,45,-100"); err == nil {
		t.Fatal("expected error for latitude out of range, got nil")
	}
	if _, err := ParseBoundingBox("30,-185,45,-100"); err == nil {
		t.Fatal("expected error for longitude out of range, got nil")
	}
}

func TestParseBoundingBoxRejectsWrongArity(t *testing.T) {
	if _, err := ParseBoundingBox("30,-120,45"); err == nil {
		t.Fatal("expected error for missing component, got nil")
	}
}

func TestParseBoundingBoxRejectsNonNumeric(t *testing.T) {
	if _, err := ParseBoundingBox("thirty,-120,45,-100"); err == nil {
		t.Fatal("expected error for non-numeric component, got nil")
	}
}
