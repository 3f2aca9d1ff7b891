package kml

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
)

// Power-dependent color ramp constants for pixel polygon fills: orange at
// zero power shading to full red at FullRedPower, then red trending toward
// magenta as power approaches MaxPower. Alpha is fixed at 0.6 across the
// whole ramp.
const (
	MaxPower          = 3_000.0
	MaxGreenForOrange = 0.647
	FullRedPower      = MaxPower / 2.0
	fillAlpha         = 0.6
)

// powerColor computes the KML "AABBGGRR" hex color for a pixel's power
// reading: orange at zero power, losing green until it is full red at
// FullRedPower, then trending toward magenta (adding blue) up to MaxPower.
func powerColor(power float64) string {
	if math.IsInf(power, 1) {
		power = MaxPower
	}
	power = math.Min(power, MaxPower)

	var green, blue float64
	if power <= FullRedPower {
		green = (FullRedPower - power) / FullRedPower * MaxGreenForOrange
	} else {
		blue = (power - FullRedPower) / (MaxPower - FullRedPower)
	}

	return fmt.Sprintf("%02X%02X%02X%02X",
		int(fillAlpha*255), int(blue*255), int(green*255), int(255))
}

func pixelDescription(p pixel.Pixel) string {
	return fmt.Sprintf(
		"Power: %.0f MW<br/>Area: %.0f m^2<br/>Temperature: %.0f K<br/>"+
			"scan angle: %.0f&deg;<br/>Mask Flag: %d<br/>Data Quality Flag: %d<br/>",
		p.Power, p.Area, p.Temperature, p.ScanAngle, p.MaskFlag, p.DataQualityFlag,
	)
}

func writePixelPolygon(kw *Writer, p pixel.Pixel) error {
	if err := kw.StartPlacemark("", pixelDescription(p), ""); err != nil {
		return err
	}
	if err := kw.StartStyle(""); err != nil {
		return err
	}
	if err := kw.PolyStyle(powerColor(p.Power), true, false); err != nil {
		return err
	}
	if err := kw.FinishStyle(); err != nil {
		return err
	}
	if err := kw.StartPolygon(true, true, "clampToGround"); err != nil {
		return err
	}
	if err := kw.PolygonStartOuterRing(); err != nil {
		return err
	}
	if err := kw.StartLinearRing(); err != nil {
		return err
	}
	for _, c := range [5]pixel.Coord{p.UL, p.LL, p.LR, p.UR, p.UL} {
		if err := kw.LinearRingVertex(c.Lat, c.Lon, 0); err != nil {
			return err
		}
	}
	if err := kw.FinishLinearRing(); err != nil {
		return err
	}
	if err := kw.PolygonFinishOuterRing(); err != nil {
		return err
	}
	return kw.FinishPolygon()
}

// WritePixelList writes one placemark per pixel, each styled by its own
// power-dependent color.
func WritePixelList(kw *Writer, pl *pixel.PixelList) error {
	for _, p := range pl.Pixels() {
		if err := writePixelPolygon(kw, p); err != nil {
			return err
		}
		if err := kw.FinishPlacemark(); err != nil {
			return err
		}
	}
	return nil
}

// WriteClusterList writes one folder named after the satellite/sector,
// containing one multi-geometry placemark per cluster, each with a
// TimeSpan covering the scan.
func WriteClusterList(kw *Writer, list *cluster.List) error {
	name := fmt.Sprintf("%s %s", list.Satellite, list.Sector)
	if err := kw.StartFolder(name, "", false); err != nil {
		return err
	}
	for i, cl := range list.Clusters() {
		placemarkName := fmt.Sprintf("%s cluster %d", name, i+1)
		if err := kw.StartPlacemark(placemarkName, "", ""); err != nil {
			return err
		}
		if err := kw.TimeSpan(list.Start, list.End); err != nil {
			return err
		}
		if err := kw.StartMultiGeometry(); err != nil {
			return err
		}
		if err := WritePixelList(kw, cl.Pixels()); err != nil {
			return err
		}
		if err := kw.FinishMultiGeometry(); err != nil {
			return err
		}
		if err := kw.FinishPlacemark(); err != nil {
			return err
		}
	}
	return kw.FinishFolder()
}

// WriteWildfire writes one placemark for a wildfire: an icon-styled point
// at its centroid plus a multi-geometry of its accumulated pixel area,
// spanning its full observed lifetime.
func WriteWildfire(kw *Writer, w *fire.Wildfire) error {
	description := fmt.Sprintf(
		"First observed: %s<br/>Last observed: %s<br/>Max power: %.0f MW<br/>Max temperature: %.0f K<br/>",
		w.FirstObserved().UTC().Format(time.RFC3339), w.LastObserved().UTC().Format(time.RFC3339),
		w.MaxPower(), w.MaxTemperature(),
	)
	if err := kw.StartPlacemark(w.Code().String(), description, ""); err != nil {
		return err
	}
	if err := kw.TimeSpan(w.FirstObserved(), w.LastObserved()); err != nil {
		return err
	}
	if err := kw.StartStyle(""); err != nil {
		return err
	}
	if err := kw.IconStyle("", 1.0); err != nil {
		return err
	}
	if err := kw.FinishStyle(); err != nil {
		return err
	}
	if err := kw.StartMultiGeometry(); err != nil {
		return err
	}
	centroid := w.Centroid()
	if err := kw.Point(centroid.Lat, centroid.Lon, 0); err != nil {
		return err
	}
	if err := WritePixelList(kw, w.Area()); err != nil {
		return err
	}
	if err := kw.FinishMultiGeometry(); err != nil {
		return err
	}
	return kw.FinishPlacemark()
}

// WriteWildfires writes one folder named "Wildfires" containing a
// placemark per fire.
func WriteWildfires(kw *Writer, fires []*fire.Wildfire) error {
	if err := kw.StartFolder("Wildfires", "", true); err != nil {
		return err
	}
	for _, w := range fires {
		if err := WriteWildfire(kw, w); err != nil {
			return err
		}
	}
	return kw.FinishFolder()
}
