// Package kml is a minimal streaming KML/KMZ writer purpose-built for
// wildfire and cluster geometry: document header/footer, folders,
// placemarks, styles, and the polygon/linear-ring elements a pixel
// quadrilateral needs. It is not a general KML library — callers are
// responsible for closing every element they open, the same tradeoff
// the original crate made to avoid buffering a whole document in memory.
package kml

import (
	"fmt"
	"io"
	"time"
)

// Writer streams KML elements to an underlying io.Writer. The zero value
// is not usable; construct one with NewWriter, which writes the document
// header immediately.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w and writes the KML document header.
func NewWriter(w io.Writer) (*Writer, error) {
	kw := &Writer{w: w}
	kw.writeString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	kw.writeString("<kml xmlns=\"http://www.opengis.net/kml/2.2\">\n<Document>\n")
	return kw, kw.err
}

// Close writes the document footer. It does not close the underlying
// io.Writer.
func (kw *Writer) Close() error {
	kw.writeString("</Document>\n</kml>\n")
	return kw.err
}

func (kw *Writer) writeString(s string) {
	if kw.err != nil {
		return
	}
	_, kw.err = io.WriteString(kw.w, s)
}

func (kw *Writer) writef(format string, args ...interface{}) {
	kw.writeString(fmt.Sprintf(format, args...))
}

// Description writes a CDATA-wrapped description element.
func (kw *Writer) Description(description string) error {
	kw.writef("<description><![CDATA[%s]]></description>\n", description)
	return kw.err
}

// StartFolder opens a Folder element. name and description may be empty
// to omit those children.
func (kw *Writer) StartFolder(name, description string, isOpen bool) error {
	kw.writeString("<Folder>\n")
	if name != "" {
		kw.writef("<name>%s</name>\n", name)
	}
	if description != "" {
		if err := kw.Description(description); err != nil {
			return err
		}
	}
	if isOpen {
		kw.writeString("<open>1</open>\n")
	}
	return kw.err
}

// FinishFolder closes a Folder element.
func (kw *Writer) FinishFolder() error {
	kw.writeString("</Folder>\n")
	return kw.err
}

// StartPlacemark opens a Placemark element. name, description, and
// styleURL may be empty to omit those children.
func (kw *Writer) StartPlacemark(name, description, styleURL string) error {
	kw.writeString("<Placemark>\n")
	if name != "" {
		kw.writef("<name>%s</name>\n", name)
	}
	if description != "" {
		if err := kw.Description(description); err != nil {
			return err
		}
	}
	if styleURL != "" {
		kw.writef("<styleUrl>%s</styleUrl>\n", styleURL)
	}
	return kw.err
}

// FinishPlacemark closes a Placemark element.
func (kw *Writer) FinishPlacemark() error {
	kw.writeString("</Placemark>\n")
	return kw.err
}

// StartStyle opens a Style element, optionally identified by id.
func (kw *Writer) StartStyle(id string) error {
	if id != "" {
		kw.writef("<Style id=%q>\n", id)
	} else {
		kw.writeString("<Style>\n")
	}
	return kw.err
}

// FinishStyle closes a Style element.
func (kw *Writer) FinishStyle() error {
	kw.writeString("</Style>\n")
	return kw.err
}

// PolyStyle writes a PolyStyle element. color is an 8-hex-digit AABBGGRR
// string, or empty for KML's random color mode.
func (kw *Writer) PolyStyle(color string, filled, outlined bool) error {
	kw.writeString("<PolyStyle>\n")
	if color != "" {
		kw.writef("<color>%s</color>\n<colorMode>normal</colorMode>\n", color)
	} else {
		kw.writeString("<colorMode>random</colorMode>\n")
	}
	kw.writef("<fill>%d</fill>\n", boolToInt(filled))
	kw.writef("<outline>%d</outline>\n", boolToInt(outlined))
	kw.writeString("</PolyStyle>\n")
	return kw.err
}

// IconStyle writes an IconStyle element. iconURL may be empty to omit the
// Icon child; scale <= 0 defaults to 1.
func (kw *Writer) IconStyle(iconURL string, scale float64) error {
	kw.writeString("<IconStyle>\n")
	if scale > 0 {
		kw.writef("<scale>%v</scale>\n", scale)
	} else {
		kw.writeString("<scale>1</scale>\n")
	}
	if iconURL != "" {
		kw.writef("<Icon><href>%s</href></Icon>\n", iconURL)
	}
	kw.writeString("</IconStyle>\n")
	return kw.err
}

// TimeSpan writes a TimeSpan element.
func (kw *Writer) TimeSpan(start, end time.Time) error {
	const layout = "2006-01-02T15:04:05.000Z"
	kw.writeString("<TimeSpan>\n")
	kw.writef("<begin>%s</begin>\n", start.UTC().Format(layout))
	kw.writef("<end>%s</end>\n", end.UTC().Format(layout))
	kw.writeString("</TimeSpan>\n")
	return kw.err
}

// StartMultiGeometry opens a MultiGeometry element.
func (kw *Writer) StartMultiGeometry() error {
	kw.writeString("<MultiGeometry>\n")
	return kw.err
}

// FinishMultiGeometry closes a MultiGeometry element.
func (kw *Writer) FinishMultiGeometry() error {
	kw.writeString("</MultiGeometry>\n")
	return kw.err
}

// StartPolygon opens a Polygon element. altitudeMode may be empty to
// omit that child; otherwise it must be one of "clampToGround",
// "relativeToGround", or "absolute".
func (kw *Writer) StartPolygon(extrude, tessellate bool, altitudeMode string) error {
	kw.writeString("<Polygon>\n")
	if altitudeMode != "" {
		kw.writef("<altitudeMode>%s</altitudeMode>\n", altitudeMode)
	}
	if extrude {
		kw.writeString("<extrude>1</extrude>\n")
	}
	if tessellate {
		kw.writeString("<tessellate>1</tessellate>\n")
	}
	return kw.err
}

// FinishPolygon closes a Polygon element.
func (kw *Writer) FinishPolygon() error {
	kw.writeString("</Polygon>\n")
	return kw.err
}

// PolygonStartOuterRing opens a Polygon's outerBoundaryIs element.
func (kw *Writer) PolygonStartOuterRing() error {
	kw.writeString("<outerBoundaryIs>\n")
	return kw.err
}

// PolygonFinishOuterRing closes a Polygon's outerBoundaryIs element.
func (kw *Writer) PolygonFinishOuterRing() error {
	kw.writeString("</outerBoundaryIs>\n")
	return kw.err
}

// StartLinearRing opens a LinearRing's coordinates element.
func (kw *Writer) StartLinearRing() error {
	kw.writeString("<LinearRing>\n<coordinates>\n")
	return kw.err
}

// FinishLinearRing closes a LinearRing's coordinates element.
func (kw *Writer) FinishLinearRing() error {
	kw.writeString("</coordinates>\n</LinearRing>\n")
	return kw.err
}

// LinearRingVertex adds one lon,lat,z vertex to the current LinearRing.
func (kw *Writer) LinearRingVertex(lat, lon, z float64) error {
	kw.writef("%v,%v,%v\n", lon, lat, z)
	return kw.err
}

// Point writes a standalone Point element.
func (kw *Writer) Point(lat, lon, z float64) error {
	kw.writef("<Point>\n<coordinates>%v,%v,%v</coordinates>\n</Point>\n", lon, lat, z)
	return kw.err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
