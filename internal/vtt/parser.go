package vtt

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/logging"
)

var ErrNoSignature = errors.New("missing WEBVTT signature")

var timingRegex = regexp.MustCompile(`^(\S+)[ \t]+-->[ \t]+(\S+)(.*)$`)

// parsed WebVTT document
type Document struct {
	Regions []cue.Region
	Cues    []cue.Cue
}

type ParseOption func(*parser)

func WithLogger(l *logging.Logger) ParseOption {
	return func(p *parser) {
		p.logger = logging.OrNop(l)
	}
}

type parser struct {
	logger    *logging.Logger
	extractor *Extractor
	tokenizer *Tokenizer
	doc       *Document
	lineNum   int
}

// Parse reads a complete WebVTT document. Malformed cue blocks are logged
// and skipped; only a missing signature fails the whole document.
func Parse(text string, opts ...ParseOption) (*Document, error) {
	p := &parser{
		logger:    logging.NewNop(),
		extractor: NewExtractor(),
		doc:       &Document{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.tokenizer = NewTokenizer(p.extractor, WithTokenizerLogger(p.logger))

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading WebVTT text: %w", err)
		}
		return nil, ErrNoSignature
	}
	p.lineNum++
	if !isSignature(strings.TrimPrefix(scanner.Text(), "\ufeff")) {
		return nil, ErrNoSignature
	}

	// header runs until the first blank line
	for scanner.Scan() {
		p.lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "Region:"); ok {
			p.addRegion(rest, p.lineNum)
		}
	}

	var (
		block     []string
		blockLine int
	)
	flush := func() {
		if len(block) > 0 {
			p.parseBlock(block, blockLine)
			block = nil
		}
	}
	for scanner.Scan() {
		p.lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if len(block) == 0 {
			blockLine = p.lineNum
		}
		block = append(block, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading WebVTT text: %w", err)
	}

	return p.doc, nil
}

func isSignature(line string) bool {
	return hasKeyword(line, "WEBVTT")
}

// keyword followed by end of line, space or tab
func hasKeyword(line, keyword string) bool {
	rest, ok := strings.CutPrefix(line, keyword)
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

// startLine is the 1-based line number of block[0]
func (p *parser) parseBlock(block []string, startLine int) {
	first := block[0]
	switch {
	case hasKeyword(first, "NOTE"), hasKeyword(first, "STYLE"):
		return
	case hasKeyword(first, "REGION"):
		p.addRegion(strings.Join(block[1:], " "), startLine)
		return
	}

	var id string
	if !strings.Contains(first, "-->") {
		id = strings.TrimSpace(first)
		block = block[1:]
		if len(block) == 0 {
			p.logger.Debugw("Skipping cue block without timing", "line", startLine, "id", id)
			return
		}
		startLine++
	}

	c, err := p.parseTiming(block[0])
	if err != nil {
		p.logger.Warnw("Skipping cue with invalid timing",
			"line", startLine,
			"timing", block[0],
			"error", err,
		)
		return
	}
	c.Plain.ID = id

	p.tokenizer.Reset()
	for _, line := range block[1:] {
		p.tokenizer.Tokenize(line)
	}
	c.Plain.Lines = p.extractor.Text()

	p.doc.Cues = append(p.doc.Cues, c)
}

func (p *parser) parseTiming(line string) (cue.Cue, error) {
	matches := timingRegex.FindStringSubmatch(line)
	if matches == nil {
		return cue.Cue{}, errors.New("malformed timing line")
	}

	start, err := ParseTimestamp(matches[1])
	if err != nil {
		return cue.Cue{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := ParseTimestamp(matches[2])
	if err != nil {
		return cue.Cue{}, fmt.Errorf("invalid end: %w", err)
	}
	if end < start {
		return cue.Cue{}, fmt.Errorf("end %d before start %d", end, start)
	}

	c := cue.NewPlain(start, end, nil)
	for _, setting := range strings.Fields(matches[3]) {
		name, value, ok := strings.Cut(setting, ":")
		if !ok || value == "" {
			p.logger.Debugw("Ignoring cue setting", "setting", setting)
			continue
		}
		if err := applyCueSetting(c.Plain, name, value); err != nil {
			p.logger.Debugw("Ignoring cue setting", "setting", setting, "error", err)
		}
	}
	return c, nil
}

func applyCueSetting(plain *cue.Plain, name, value string) error {
	s := &plain.Settings
	switch name {
	case "region":
		plain.RegionID = value
	case "vertical":
		if value != "rl" && value != "lr" {
			return fmt.Errorf("invalid vertical %q", value)
		}
		s.Vertical = value
	case "line":
		pos, _, _ := strings.Cut(value, ",")
		if p, ok := strings.CutSuffix(pos, "%"); ok {
			n, err := parsePercent(p)
			if err != nil {
				return err
			}
			v := int(n)
			s.LinePosition = &v
			s.SnapToLines = false
		} else {
			n, err := strconv.Atoi(pos)
			if err != nil {
				return fmt.Errorf("invalid line %q", value)
			}
			s.LinePosition = &n
			s.SnapToLines = true
		}
		s.Line = value
	case "position":
		pos, _, _ := strings.Cut(value, ",")
		if _, err := parsePercentValue(pos); err != nil {
			return err
		}
		s.Position = value
	case "size":
		if _, err := parsePercentValue(value); err != nil {
			return err
		}
		s.Size = value
	case "align":
		switch value {
		case "start", "center", "middle", "end", "left", "right":
			s.Align = value
		default:
			return fmt.Errorf("invalid align %q", value)
		}
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

func (p *parser) addRegion(settings string, line int) {
	region := cue.DefaultRegion("")
	for _, setting := range strings.Fields(settings) {
		name, value, ok := strings.Cut(setting, "=")
		if !ok {
			name, value, ok = strings.Cut(setting, ":")
		}
		if !ok {
			continue
		}
		if err := applyRegionSetting(&region, name, value); err != nil {
			p.logger.Debugw("Ignoring region setting", "setting", setting, "error", err)
		}
	}

	if region.ID == "" {
		p.logger.Warnw("Dropping region without id", "line", line)
		return
	}
	p.doc.Regions = append(p.doc.Regions, region)
}

func applyRegionSetting(r *cue.Region, name, value string) error {
	switch name {
	case "id":
		if strings.Contains(value, "-->") {
			return fmt.Errorf("invalid region id %q", value)
		}
		r.ID = value
	case "width":
		w, err := parsePercentValue(value)
		if err != nil {
			return err
		}
		r.WidthPercent = w
	case "lines":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid lines %q", value)
		}
		r.Lines = n
	case "regionanchor":
		pt, err := parsePoint(value)
		if err != nil {
			return err
		}
		r.Anchor = pt
	case "viewportanchor":
		pt, err := parsePoint(value)
		if err != nil {
			return err
		}
		r.ViewportAnchor = pt
	case "scroll":
		if value != "up" {
			return fmt.Errorf("invalid scroll %q", value)
		}
		r.Scroll = cue.ScrollUp
	default:
		return fmt.Errorf("unknown region setting %q", name)
	}
	return nil
}

// "x%,y%"
func parsePoint(value string) (cue.Point, error) {
	xs, ys, ok := strings.Cut(value, ",")
	if !ok {
		return cue.Point{}, fmt.Errorf("invalid anchor %q", value)
	}
	x, err := parsePercentValue(xs)
	if err != nil {
		return cue.Point{}, err
	}
	y, err := parsePercentValue(ys)
	if err != nil {
		return cue.Point{}, err
	}
	return cue.Point{X: x, Y: y}, nil
}

// "n%"
func parsePercentValue(value string) (float64, error) {
	n, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, fmt.Errorf("missing %% in %q", value)
	}
	return parsePercent(n)
}

func parsePercent(n string) (float64, error) {
	f, err := strconv.ParseFloat(n, 64)
	if err != nil || f < 0 || f > 100 {
		return 0, fmt.Errorf("invalid percentage %q", n)
	}
	return f, nil
}
