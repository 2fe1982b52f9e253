// Package settingsio serializes and parses the processing-settings XML
// document (spec §4.9), grounded on settings.cpp's CreateAndSaveDocument/
// LoadSettings shape: one root element, one child per concern, unknown
// elements ignored and missing elements leaving the current setting
// untouched.
package settingsio

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/tonecurve"
	"github.com/go-imppg/imppg/unsharp"
)

// floatPrec is settings.cpp's FLOAT_PREC: every floating-point attribute
// is written with exactly 4 digits after the decimal point.
const floatPrec = 4

const (
	elemRoot          = "imppg"
	elemLR            = "lucy-richardson"
	attrLRSigma       = "sigma"
	attrLRIters       = "iterations"
	attrLRDeringing   = "deringing"
	elemUnsharp       = "unsharp_mask"
	attrUnshAdaptive  = "adaptive"
	attrUnshSigma     = "sigma"
	attrUnshAmountMin = "amount_min"
	attrUnshAmountMax = "amount_max"
	attrUnshThreshold = "amount_threshold"
	attrUnshWidth     = "amount_width"
	elemToneCurve     = "tone_curve"
	attrTCSmooth      = "smooth"
	attrTCIsGamma     = "is_gamma"
	attrTCGamma       = "gamma"
	elemNorm          = "normalization"
	attrNormEnabled   = "enabled"
	attrNormMin       = "min"
	attrNormMax       = "max"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', floatPrec, 64) }

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func parseBool(s string) bool { return s == "true" }

// rawElement mirrors one first-level XML element generically, so unknown
// elements can be skipped and element order is not significant (spec
// §4.9).
type rawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
}

func (e rawElement) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Save writes settings as the XML document of spec §4.9.
func Save(path string, settings pipeline.Settings) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<%s>\n", elemRoot)

	fmt.Fprintf(&b, "  <%s %s=\"%s\" %s=\"%d\" %s=\"%s\"/>\n", elemLR,
		attrLRSigma, formatFloat(settings.LR.Sigma),
		attrLRIters, settings.LR.Iterations,
		attrLRDeringing, formatBool(settings.LR.Deringing.Enabled))

	for _, p := range settings.Unsharp {
		fmt.Fprintf(&b, "  <%s %s=\"%s\" %s=\"%s\" %s=\"%s\" %s=\"%s\" %s=\"%s\" %s=\"%s\"/>\n", elemUnsharp,
			attrUnshAdaptive, formatBool(p.Adaptive),
			attrUnshSigma, formatFloat(p.Sigma),
			attrUnshAmountMin, formatFloat(float64(p.AmountMin)),
			attrUnshAmountMax, formatFloat(float64(p.AmountMax)),
			attrUnshThreshold, formatFloat(float64(p.Threshold)),
			attrUnshWidth, formatFloat(float64(p.Width)))
	}

	if settings.ToneCurve != nil {
		c := settings.ToneCurve
		fmt.Fprintf(&b, "  <%s %s=\"%s\" %s=\"%s\"", elemToneCurve,
			attrTCSmooth, formatBool(c.Smooth()),
			attrTCIsGamma, formatBool(c.GammaMode()))
		if c.GammaMode() {
			fmt.Fprintf(&b, " %s=\"%s\"", attrTCGamma, formatFloat(c.Gamma()))
		}
		b.WriteString(">")
		for _, p := range c.Points() {
			fmt.Fprintf(&b, "%s;%s;", formatFloat(p.X), formatFloat(p.Y))
		}
		fmt.Fprintf(&b, "</%s>\n", elemToneCurve)
	}

	fmt.Fprintf(&b, "  <%s %s=\"%s\" %s=\"%s\" %s=\"%s\"/>\n", elemNorm,
		attrNormEnabled, formatBool(settings.Normalization.Enabled),
		attrNormMin, formatFloat(settings.Normalization.Min),
		attrNormMax, formatFloat(settings.Normalization.Max))

	fmt.Fprintf(&b, "</%s>\n", elemRoot)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return ierr.New(ierr.IO, "settingsio.Save", errors.Wrap(err, "write settings file"))
	}
	return nil
}

// Load parses path and merges it into current, leaving any setting whose
// element is absent untouched (spec §4.9). Parse failures leave current
// entirely untouched, matching spec §7's "settings I/O failures leave
// current settings untouched".
func Load(path string, current pipeline.Settings) (pipeline.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return current, ierr.New(ierr.IO, "settingsio.Load", errors.Wrap(err, "read settings file"))
	}

	type doc struct {
		XMLName  xml.Name
		Elements []rawElement `xml:",any"`
	}
	var d doc
	if err := xml.Unmarshal(data, &d); err != nil {
		return current, ierr.New(ierr.SettingsParseError, "settingsio.Load", errors.Wrap(err, "parse settings xml"))
	}
	if d.XMLName.Local != elemRoot {
		return current, ierr.New(ierr.SettingsParseError, "settingsio.Load", errors.Errorf("unexpected root element %q", d.XMLName.Local))
	}

	out := current
	var unsharpPasses []unsharp.Params
	for _, el := range d.Elements {
		switch el.XMLName.Local {
		case elemLR:
			lr, err := parseLR(el)
			if err != nil {
				return current, err
			}
			out.LR = lr
		case elemUnsharp:
			p, err := parseUnsharp(el)
			if err != nil {
				return current, err
			}
			unsharpPasses = append(unsharpPasses, p)
		case elemToneCurve:
			c, err := parseToneCurve(el)
			if err != nil {
				return current, err
			}
			out.ToneCurve = c
		case elemNorm:
			n, err := parseNormalization(el)
			if err != nil {
				return current, err
			}
			out.Normalization = n
		default:
			// Unknown elements are ignored (spec §4.9).
		}
	}
	if len(unsharpPasses) > 0 {
		out.Unsharp = unsharpPasses
	}
	return out, nil
}

func parseFloatAttr(el rawElement, name string) (float64, bool, error) {
	s, ok := el.attr(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, ierr.New(ierr.SettingsParseError, "settingsio.parseFloatAttr", errors.Wrapf(err, "parse %q", name))
	}
	return v, true, nil
}

func parseLR(el rawElement) (lrdeconv.Params, error) {
	var p lrdeconv.Params
	if v, ok, err := parseFloatAttr(el, attrLRSigma); err != nil {
		return p, err
	} else if ok {
		p.Sigma = v
	}
	if s, ok := el.attr(attrLRIters); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, ierr.New(ierr.SettingsParseError, "settingsio.parseLR", errors.Wrap(err, "parse iterations"))
		}
		p.Iterations = n
	}
	if s, ok := el.attr(attrLRDeringing); ok {
		p.Deringing.Enabled = parseBool(s)
	}
	return p, nil
}

func parseUnsharp(el rawElement) (unsharp.Params, error) {
	var p unsharp.Params
	if s, ok := el.attr(attrUnshAdaptive); ok {
		p.Adaptive = parseBool(s)
	}
	if v, ok, err := parseFloatAttr(el, attrUnshSigma); err != nil {
		return p, err
	} else if ok {
		p.Sigma = v
	}
	if v, ok, err := parseFloatAttr(el, attrUnshAmountMin); err != nil {
		return p, err
	} else if ok {
		p.AmountMin = float32(v)
	}
	if v, ok, err := parseFloatAttr(el, attrUnshAmountMax); err != nil {
		return p, err
	} else if ok {
		p.AmountMax = float32(v)
	}
	if v, ok, err := parseFloatAttr(el, attrUnshThreshold); err != nil {
		return p, err
	} else if ok {
		p.Threshold = float32(v)
	}
	if v, ok, err := parseFloatAttr(el, attrUnshWidth); err != nil {
		return p, err
	} else if ok {
		p.Width = float32(v)
	}
	return p, nil
}

func parseToneCurve(el rawElement) (*tonecurve.Curve, error) {
	c := tonecurve.NewIdentity()
	if s, ok := el.attr(attrTCSmooth); ok {
		c.SetSmooth(parseBool(s))
	}
	isGamma := false
	if s, ok := el.attr(attrTCIsGamma); ok {
		isGamma = parseBool(s)
	}
	if isGamma {
		if v, ok, err := parseFloatAttr(el, attrTCGamma); err != nil {
			return nil, err
		} else if ok {
			if err := c.SetGamma(v); err != nil {
				return nil, ierr.New(ierr.SettingsParseError, "settingsio.parseToneCurve", errors.Wrap(err, "set gamma"))
			}
		}
	}

	fields := strings.Split(strings.TrimSpace(el.Content), ";")
	var pts []tonecurve.Point
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == "" {
			continue
		}
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, ierr.New(ierr.SettingsParseError, "settingsio.parseToneCurve", errors.Wrap(err, "parse point x"))
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, ierr.New(ierr.SettingsParseError, "settingsio.parseToneCurve", errors.Wrap(err, "parse point y"))
		}
		pts = append(pts, tonecurve.Point{X: x, Y: y})
	}
	if len(pts) >= 2 {
		// Move the identity curve's two endpoints onto the first and last
		// stored points, then add the rest, so the loaded curve has exactly
		// the stored points and keeps the smooth and gamma values set above.
		first, last := pts[0], pts[len(pts)-1]
		c.UpdatePoint(0, first.X, first.Y)
		c.UpdatePoint(1, last.X, last.Y)
		for _, p := range pts[1 : len(pts)-1] {
			c.AddPoint(p.X, p.Y)
		}
	}
	c.SetGammaMode(isGamma)
	return c, nil
}

func parseNormalization(el rawElement) (pipeline.Normalization, error) {
	var n pipeline.Normalization
	if s, ok := el.attr(attrNormEnabled); ok {
		n.Enabled = parseBool(s)
	}
	if v, ok, err := parseFloatAttr(el, attrNormMin); err != nil {
		return n, err
	} else if ok {
		n.Min = v
	}
	if v, ok, err := parseFloatAttr(el, attrNormMax); err != nil {
		return n, err
	} else if ok {
		n.Max = v
	}
	return n, nil
}
