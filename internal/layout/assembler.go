package layout

import (
	"sort"
	"strings"
	"unicode"

	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/geom"
	"pdf-layout-translator/internal/logger"
)

// Assembler repairs and resolves raw detections into the final block set
// for a page. All assembly happens in detector pixel space; conversion to
// point space is the last step.
type Assembler struct {
	policy Policy
}

// NewAssembler creates an assembler with the given policy.
func NewAssembler(policy Policy) *Assembler {
	return &Assembler{policy: policy}
}

// candidate is a box in flight through assembly, tagged with its original
// detection order so area ties resolve deterministically.
type candidate struct {
	Box
	source Source
	order  int
}

// Assemble produces the surviving blocks for one page. boxes are raw
// detections in pixel space; spans and lines are the page's native text
// geometry in point space; zoom relates the two spaces.
//
// The result contains protected blocks (figures, tables, formulas)
// followed by translatable blocks in reading order, all in point space.
func (a *Assembler) Assemble(boxes []Box, spans []doc.TextSpan, lines []doc.TextLine, zoom float64) []*Block {
	var protected []candidate
	var translatable []candidate
	for i, b := range boxes {
		c := candidate{Box: b, source: SourceDetected, order: i}
		switch {
		case b.Kind.Protected():
			protected = append(protected, c)
		case b.Kind.Translatable():
			translatable = append(translatable, c)
		case b.Kind == KindAbandon:
			if rescued, ok := a.rescueAbandon(b, spans, zoom); ok {
				rescued.order = i
				translatable = append(translatable, rescued)
			}
		}
	}

	translatable = a.dropProtectedOverlaps(translatable, protected)

	orphans := a.rescueOrphans(lines, protected, translatable, zoom, len(boxes))
	translatable = append(translatable, orphans...)

	// Rescued boxes may themselves sit inside a protected region.
	translatable = a.dropProtectedOverlaps(translatable, protected)

	translatable = a.suppressShells(translatable)
	translatable = a.suppressContained(translatable)

	blocks := make([]*Block, 0, len(protected)+len(translatable))
	for _, c := range protected {
		blocks = append(blocks, a.finalize(c, zoom))
	}
	// Reading order: top to bottom, left to right.
	sort.SliceStable(translatable, func(i, j int) bool {
		if translatable[i].Rect.Y0 != translatable[j].Rect.Y0 {
			return translatable[i].Rect.Y0 < translatable[j].Rect.Y0
		}
		return translatable[i].Rect.X0 < translatable[j].Rect.X0
	})
	for _, c := range translatable {
		blocks = append(blocks, a.finalize(c, zoom))
	}

	logger.Debug("assembly complete",
		logger.Int("detections", len(boxes)),
		logger.Int("protected", len(protected)),
		logger.Int("translatable", len(translatable)))

	return blocks
}

func (a *Assembler) finalize(c candidate, zoom float64) *Block {
	return &Block{
		Kind:       c.Kind,
		Rect:       geom.FromPixels(c.Rect, zoom),
		Confidence: c.Confidence,
		Source:     c.source,
	}
}

// rescueAbandon reclassifies an abandon box as text when the content it
// covers looks like real prose: long enough, and either CJK or at least
// two words. Footnotes and margin annotations the detector flags as
// non-content often pass this test.
func (a *Assembler) rescueAbandon(b Box, spans []doc.TextSpan, zoom float64) (candidate, bool) {
	var sb strings.Builder
	for _, s := range spans {
		if geom.ToPixels(s.Rect, zoom).Intersects(b.Rect) {
			sb.WriteString(s.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if len([]rune(text)) < a.policy.MinRescueChars {
		return candidate{}, false
	}
	if !hasMultiByte(text) && len(strings.Fields(text)) < 2 {
		return candidate{}, false
	}

	logger.Debug("abandon box rescued", logger.Int("chars", len([]rune(text))))
	b.Kind = KindText
	return candidate{Box: b, source: SourceRescuedAbandon}, true
}

func hasMultiByte(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// rescueOrphans synthesizes a text block for every native line the
// detector missed: lines whose best overlap ratio against every current
// box is at or below the orphan threshold. The new box bounds exactly the
// line.
func (a *Assembler) rescueOrphans(lines []doc.TextLine, protected, translatable []candidate, zoom float64, orderBase int) []candidate {
	var orphans []candidate
	for i, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		px := geom.ToPixels(line.Rect, zoom)
		best := 0.0
		for _, c := range protected {
			if r := geom.OverlapRatio(px, c.Rect); r > best {
				best = r
			}
		}
		for _, c := range translatable {
			if r := geom.OverlapRatio(px, c.Rect); r > best {
				best = r
			}
		}
		if best > a.policy.OrphanOverlap {
			continue
		}
		orphans = append(orphans, candidate{
			Box:    Box{Kind: KindText, Rect: px, Confidence: 1.0},
			source: SourceRescuedOrphan,
			order:  orderBase + i,
		})
	}
	if len(orphans) > 0 {
		logger.Debug("orphan lines rescued", logger.Int("count", len(orphans)))
	}
	return orphans
}

// dropProtectedOverlaps removes translatable boxes whose coverage by any
// protected region exceeds the policy threshold. Protected content is
// never captured as translatable text.
func (a *Assembler) dropProtectedOverlaps(translatable, protected []candidate) []candidate {
	if len(protected) == 0 {
		return translatable
	}
	kept := translatable[:0]
	for _, c := range translatable {
		covered := false
		for _, p := range protected {
			if geom.CoverageOf(c.Rect, p.Rect) > a.policy.ProtectedCoverage {
				covered = true
				break
			}
		}
		if covered {
			logger.Debug("box dropped: protected overlap",
				logger.String("kind", c.Kind.String()))
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// byAreaDesc sorts candidates by area descending, detection order on ties.
func byAreaDesc(cs []candidate) []candidate {
	sorted := make([]candidate, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := sorted[i].Rect.Area(), sorted[j].Rect.Area()
		if ai != aj {
			return ai > aj
		}
		return sorted[i].order < sorted[j].order
	})
	return sorted
}

// suppressShells is NMS pass 1: a box jointly covered at or above the
// shell threshold by two or more strictly smaller boxes is a container
// shell around real content and is dropped. Every box is judged against
// the full input set before any drop takes effect, so the pass is a
// fixpoint of itself.
func (a *Assembler) suppressShells(cs []candidate) []candidate {
	sorted := byAreaDesc(cs)
	shell := make(map[int]bool)

	for i, big := range sorted {
		var smaller []geom.Rect
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Rect.Area() < big.Rect.Area() && sorted[j].Rect.Intersects(big.Rect) {
				smaller = append(smaller, sorted[j].Rect)
			}
		}
		if len(smaller) < 2 {
			continue
		}
		if geom.UnionCoverage(big.Rect, smaller) >= a.policy.ShellCoverage {
			shell[big.order] = true
			logger.Debug("box dropped: container shell",
				logger.String("kind", big.Kind.String()),
				logger.Int("covering", len(smaller)))
		}
	}

	kept := cs[:0]
	for _, c := range cs {
		if !shell[c.order] {
			kept = append(kept, c)
		}
	}
	return kept
}

// suppressContained is NMS pass 2: iterating by area descending, a box
// contained at or above the containment threshold within an already-kept
// box is a duplicate and is dropped.
func (a *Assembler) suppressContained(cs []candidate) []candidate {
	sorted := byAreaDesc(cs)
	dropped := make(map[int]bool)
	var keptRects []geom.Rect

	for _, c := range sorted {
		contained := false
		for _, k := range keptRects {
			if geom.CoverageOf(c.Rect, k) >= a.policy.ContainmentRatio {
				contained = true
				break
			}
		}
		if contained {
			dropped[c.order] = true
			logger.Debug("box dropped: contained duplicate",
				logger.String("kind", c.Kind.String()))
			continue
		}
		keptRects = append(keptRects, c.Rect)
	}

	kept := cs[:0]
	for _, c := range cs {
		if !dropped[c.order] {
			kept = append(kept, c)
		}
	}
	return kept
}
