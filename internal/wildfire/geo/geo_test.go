package geo

import "testing"

func floatEquals(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestCoordAreClose(t *testing.T) {
	c1 := Coord{Lat: 45.5, Lon: -120.0}
	c2 := Coord{Lat: 45.5000002, Lon: -120.0000002}

	if !c1.IsClose(c2, 1.0e-6) {
		t.Errorf("expected %v to be close to %v at eps 1e-6", c1, c2)
	}
	if c1.IsClose(c2, 1.0e-8) {
		t.Errorf("expected %v not close to %v at eps 1e-8", c1, c2)
	}
}

func TestDefaultBoundingBoxesDoNotOverlap(t *testing.T) {
	def1 := DefaultBoundingBox()
	def2 := DefaultBoundingBox()

	b3 := BoundingBox{LL: Coord{Lat: 0, Lon: 0}, UR: Coord{Lat: 1, Lon: 1}}
	b4 := BoundingBox{LL: Coord{Lat: 0.5, Lon: 0.5}, UR: Coord{Lat: 1.5, Lon: 1.5}}
	b5 := BoundingBox{LL: Coord{Lat: 2, Lon: 2}, UR: Coord{Lat: 3, Lon: 3}}
	b6 := BoundingBox{LL: Coord{Lat: 1, Lon: 1}, UR: Coord{Lat: 2, Lon: 2}}

	if def1.Overlap(def2, 1e-6) {
		t.Error("sentinel boxes must never overlap each other")
	}
	if def1.Overlap(b3, 1e-6) || b3.Overlap(def1, 1e-6) {
		t.Error("sentinel box must never overlap a real box")
	}

	if !b3.Overlap(b4, 1e-6) {
		t.Error("b3 and b4 should overlap")
	}
	if b3.Overlap(b5, 1e-6) {
		t.Error("b3 and b5 should not overlap")
	}
	if !b3.Overlap(b6, 1e-6) {
		t.Error("b3 and b6 touch at a corner and should overlap within eps")
	}
}

func TestBoundingBoxContainsCoord(t *testing.T) {
	b := BoundingBox{LL: Coord{Lat: 44, Lon: -120}, UR: Coord{Lat: 45, Lon: -119}}

	if !b.ContainsCoord(Coord{Lat: 44.5, Lon: -119.5}, 1e-6) {
		t.Error("expected interior point to be contained")
	}
	if b.ContainsCoord(Coord{Lat: 46, Lon: -119.5}, 1e-6) {
		t.Error("expected exterior point to not be contained")
	}
}

func TestTriangleCentroid(t *testing.T) {
	c := TriangleCentroid(
		Coord{Lat: 0, Lon: 0},
		Coord{Lat: 3, Lon: 0},
		Coord{Lat: 0, Lon: 3},
	)
	if !floatEquals(c.Lat, 1.0, 1e-12) || !floatEquals(c.Lon, 1.0, 1e-12) {
		t.Errorf("expected centroid (1,1), got %v", c)
	}
}

func TestLineIntersect(t *testing.T) {
	l1 := Line{Start: Coord{Lat: 0, Lon: 0}, End: Coord{Lat: 2, Lon: 2}}
	l2 := Line{Start: Coord{Lat: 0, Lon: 2}, End: Coord{Lat: 2, Lon: 0}}

	res, ok := l1.Intersect(l2, 1e-9)
	if !ok {
		t.Fatal("expected an intersection")
	}
	if !floatEquals(res.Intersection.Lat, 1.0, 1e-9) || !floatEquals(res.Intersection.Lon, 1.0, 1e-9) {
		t.Errorf("expected intersection at (1,1), got %v", res.Intersection)
	}
	if res.IntersectIsEndpoints {
		t.Error("intersection is interior to both segments, not at endpoints")
	}
}

func TestLineIntersectParallel(t *testing.T) {
	l1 := Line{Start: Coord{Lat: 0, Lon: 0}, End: Coord{Lat: 1, Lon: 1}}
	l2 := Line{Start: Coord{Lat: 0, Lon: 1}, End: Coord{Lat: 1, Lon: 2}}

	if _, ok := l1.Intersect(l2, 1e-9); ok {
		t.Error("parallel segments must not intersect")
	}
}

func TestLineIntersectVertical(t *testing.T) {
	l1 := Line{Start: Coord{Lat: 0, Lon: 1}, End: Coord{Lat: 2, Lon: 1}}
	l2 := Line{Start: Coord{Lat: 1, Lon: 0}, End: Coord{Lat: 1, Lon: 2}}

	res, ok := l1.Intersect(l2, 1e-9)
	if !ok {
		t.Fatal("expected vertical segments to intersect")
	}
	if !floatEquals(res.Intersection.Lat, 1.0, 1e-9) || !floatEquals(res.Intersection.Lon, 1.0, 1e-9) {
		t.Errorf("expected (1,1), got %v", res.Intersection)
	}
}

func TestLineIntersectSharedEndpoint(t *testing.T) {
	l1 := Line{Start: Coord{Lat: 0, Lon: 0}, End: Coord{Lat: 1, Lon: 1}}
	l2 := Line{Start: Coord{Lat: 1, Lon: 1}, End: Coord{Lat: 2, Lon: 0}}

	res, ok := l1.Intersect(l2, 1e-9)
	if !ok {
		t.Fatal("expected segments sharing an endpoint to intersect there")
	}
	if !res.IntersectIsEndpoints {
		t.Error("expected intersection to be flagged as shared endpoints")
	}
}
