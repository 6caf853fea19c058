package project

import "slices"

// GuessMethod selects the metric source used to infer a section's cadence.
type GuessMethod int

const (
	GuessFromMatches GuessMethod = iota
	GuessFromMics
	GuessFromDMetrics
	GuessFromMicsAndDMetrics
)

var guessMethodNames = []string{"from matches", "from mics", "from dmetrics", "from mics+dmetrics"}

func (m GuessMethod) String() string { return enumName(guessMethodNames, int(m)) }

// ParseGuessMethod falls back to GuessFromMicsAndDMetrics for unknown names.
func ParseGuessMethod(s string) GuessMethod {
	return GuessMethod(enumValue(guessMethodNames, s, int(GuessFromMicsAndDMetrics)))
}

// ThirdNMatch controls the third 'n' of the match template when guessing
// from matches.
type ThirdNMatch int

const (
	ThirdNMatchAlways ThirdNMatch = iota
	ThirdNMatchNever
	ThirdNMatchIfPrettier
)

var thirdNMatchNames = []string{"always", "never", "if it has lower mic"}

func (t ThirdNMatch) String() string { return enumName(thirdNMatchNames, int(t)) }

// ParseThirdNMatch falls back to ThirdNMatchNever for unknown names.
func ParseThirdNMatch(s string) ThirdNMatch {
	return ThirdNMatch(enumValue(thirdNMatchNames, s, int(ThirdNMatchNever)))
}

// DropDuplicate selects which of a cycle's two duplicates gets decimated.
type DropDuplicate int

const (
	DropFirstDuplicate DropDuplicate = iota
	DropSecondDuplicate
	DropUglierDuplicatePerCycle
	DropUglierDuplicatePerSection
)

var dropDuplicateNames = []string{
	"first duplicate",
	"second duplicate",
	"duplicate with higher mic per cycle",
	"duplicate with higher mic per section",
}

func (d DropDuplicate) String() string { return enumName(dropDuplicateNames, int(d)) }

// ParseDropDuplicate falls back to DropFirstDuplicate for unknown names.
func ParseDropDuplicate(s string) DropDuplicate {
	return DropDuplicate(enumValue(dropDuplicateNames, s, int(DropFirstDuplicate)))
}

// Pattern bits for PatternGuessing.UsePatterns.
const (
	PatternCCCNN = 1 << 0
	PatternCCNNN = 1 << 1
	PatternCCCCC = 1 << 2
)

// FailureReason explains why a section was left untouched.
type FailureReason int

const (
	SectionTooShort FailureReason = iota
	AmbiguousPattern
)

var failureReasonNames = []string{"section too short", "ambiguous pattern"}

func (r FailureReason) String() string { return enumName(failureReasonNames, int(r)) }

// ParseFailureReason falls back to AmbiguousPattern for unknown names.
func ParseFailureReason(s string) FailureReason {
	return FailureReason(enumValue(failureReasonNames, s, int(AmbiguousPattern)))
}

// Failure records a section pattern guessing could not handle.
type Failure struct {
	Start  int           `json:"start"`
	Reason FailureReason `json:"reason"`
}

func (f Failure) key() int { return f.Start }

// GuessOptions are the parameters of one pattern guessing run.
type GuessOptions struct {
	Method        GuessMethod
	MinimumLength int
	UsePatterns   int
	ThirdNMatch   ThirdNMatch
	Decimation    DropDuplicate
}

// PatternGuessing is the remembered configuration and outcome of the last
// pattern guessing run.
type PatternGuessing struct {
	GuessOptions
	failures orderedMap[Failure]
}

// Failures returns the failed sections in timeline order.
func (pg PatternGuessing) Failures() []Failure { return pg.failures.clone() }

// DefaultPatternGuessing returns the settings of a new project.
func DefaultPatternGuessing() PatternGuessing {
	return PatternGuessing{GuessOptions: GuessOptions{
		Method:        GuessFromMics,
		MinimumLength: 10,
		UsePatterns:   PatternCCCNN | PatternCCNNN | PatternCCCCC,
		ThirdNMatch:   ThirdNMatchNever,
		Decimation:    DropFirstDuplicate,
	}}
}

// PatternGuessing returns the stored pattern guessing state.
func (p *Project) PatternGuessing() PatternGuessing {
	pg := p.guessing
	pg.failures = pg.failures.clone()
	return pg
}

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return "unknown"
	}
	return names[v]
}

func enumValue(names []string, s string, fallback int) int {
	if i := slices.Index(names, s); i >= 0 {
		return i
	}
	return fallback
}

// GuessProjectPatterns guesses every section, recomputes the orphan fields
// and stores opts as the project's pattern guessing settings.
func (p *Project) GuessProjectPatterns(opts GuessOptions) error {
	if err := p.checkGuess(opts); err != nil {
		return err
	}

	p.guessing.failures = nil
	starts := make([]int, len(p.sections))
	for i, s := range p.sections {
		starts[i] = s.Start
	}
	for _, start := range starts {
		if _, err := p.guessSection(start, opts); err != nil {
			return err
		}
	}
	p.UpdateOrphanFields()

	p.guessing.Method = opts.Method
	p.guessing.MinimumLength = opts.MinimumLength
	p.guessing.Decimation = opts.Decimation
	if opts.Method == GuessFromMatches {
		p.guessing.ThirdNMatch = opts.ThirdNMatch
	} else {
		p.guessing.UsePatterns = opts.UsePatterns
	}
	p.SetModified(true)
	return nil
}

// GuessSectionPatterns guesses the section starting at start. It returns
// false when the section was recorded as a failure.
func (p *Project) GuessSectionPatterns(start int, opts GuessOptions) (bool, error) {
	if err := p.checkGuess(opts); err != nil {
		return false, err
	}
	return p.guessSection(start, opts)
}

func (p *Project) checkGuess(opts GuessOptions) error {
	switch opts.Method {
	case GuessFromMatches:
		return nil
	case GuessFromMics, GuessFromMicsAndDMetrics:
		if !p.HasMics() {
			return validationErrorf("can't guess patterns %s because there are no mics in the project", opts.Method)
		}
	case GuessFromDMetrics:
		if !p.HasDMetrics() {
			return validationErrorf("can't guess patterns %s because there are no dmetrics in the project", opts.Method)
		}
	default:
		return validationErrorf("unknown pattern guessing method %d", opts.Method)
	}
	if opts.UsePatterns&(PatternCCCNN|PatternCCNNN|PatternCCCCC) == 0 {
		return validationErrorf("can't guess patterns %s: no patterns are enabled", opts.Method)
	}
	return nil
}

func (p *Project) guessSection(start int, opts GuessOptions) (bool, error) {
	if start < 0 || start >= p.sourceFrames {
		return false, rangeErrorf("can't guess patterns %s for section starting at %d: frame number out of range", opts.Method, start)
	}
	if !p.sections.has(start) {
		return false, referenceErrorf("can't guess patterns %s for section starting at %d: no such section", opts.Method, start)
	}
	end := p.sectionEnd(start)

	if end-start-1 < opts.MinimumLength {
		p.fail(start, SectionTooShort)
		return false, nil
	}

	var ok bool
	switch opts.Method {
	case GuessFromMatches:
		ok = p.guessFromMatches(start, end, opts)
	case GuessFromMics:
		ok = p.guessFromMics(start, end, opts)
	case GuessFromDMetrics:
		ok = p.guessFromDMetrics(start, end, opts)
	case GuessFromMicsAndDMetrics:
		ok = p.guessFromMicsAndDMetrics(start, end, opts)
	}
	if !ok {
		p.fail(start, AmbiguousPattern)
		return false, nil
	}
	p.guessing.failures.remove(start)
	p.SetModified(true)
	return true, nil
}

func (p *Project) fail(start int, reason FailureReason) {
	p.guessing.failures.put(Failure{Start: start, Reason: reason})
	p.SetModified(true)
}

// candidate is a cadence at a phase together with its deviation scores.
type candidate struct {
	pattern string
	offset  int
	dev     int // selection score
	aux     int // secondary score of the selected offset
}

var candidatePatterns = []struct {
	pattern string
	bit     int
}{
	{"cccnn", PatternCCCNN},
	{"ccnnn", PatternCCNNN},
	{"c", PatternCCCCC},
}

// scorer returns the selection and secondary penalties of matching frame
// with sym instead of other.
type scorer func(frame int, sym, other byte) (int, int)

// bestCandidate scores every enabled cadence at every phase over
// [start, end-1) and returns the one with the smallest deviation.
func (p *Project) bestCandidate(start, end, usePatterns int, score scorer) (candidate, bool) {
	var best candidate
	found := false
	for _, cp := range candidatePatterns {
		if usePatterns&cp.bit == 0 {
			continue
		}
		var local candidate
		localFound := false
		for off := 0; off < len(cp.pattern); off++ {
			dev, aux := 0, 0
			for frame := start; frame < end-1; frame++ {
				sym := cp.pattern[(frame+off)%len(cp.pattern)]
				other := MatchC
				if sym == MatchC {
					other = MatchN
				}
				d, a := score(frame, sym, other)
				dev += max(0, d)
				aux += max(0, a)
			}
			if !localFound || dev < local.dev {
				local = candidate{pattern: cp.pattern, offset: off, dev: dev, aux: aux}
				localFound = true
			}
		}
		if !found || local.dev < best.dev {
			best = local
			found = true
		}
	}
	return best, found
}

func (p *Project) micScore(frame int, sym, other byte) (int, int) {
	m := p.mic(frame)
	return m[matchIndex(sym)] - m[matchIndex(other)], 0
}

func (p *Project) dmetricScore(frame int, sym, other byte) (int, int) {
	mm := triple(p.mmetrics, frame)
	vm := triple(p.vmetrics, frame)
	s, o := dmetricIndex(sym), dmetricIndex(other)
	return mm[s] - mm[o], vm[s] - vm[o]
}

func (p *Project) guessFromMics(start, end int, opts GuessOptions) bool {
	best, found := p.bestCandidate(start, end, opts.UsePatterns, p.micScore)
	if !found || best.dev > end-start-1 {
		return false
	}
	p.applyCandidate(start, end, best, false, p.micTrailing, opts.Decimation)
	return true
}

func (p *Project) guessFromDMetrics(start, end int, opts GuessOptions) bool {
	best, found := p.bestCandidate(start, end, opts.UsePatterns, p.dmetricScore)
	if !found || end-start-1 < best.aux {
		return false
	}
	p.applyCandidate(start, end, best, true, p.dmetricTrailing, opts.Decimation)
	return true
}

func (p *Project) guessFromMicsAndDMetrics(start, end int, opts GuessOptions) bool {
	mics, foundMics := p.bestCandidate(start, end, opts.UsePatterns, p.micScore)
	dmet, foundDMet := p.bestCandidate(start, end, opts.UsePatterns, p.dmetricScore)
	if !foundMics || !foundDMet {
		return false
	}

	threshold := end - start - 1
	goodMics := mics.dev <= threshold
	goodDMet := threshold >= dmet.aux
	switch {
	case goodMics:
		p.applyCandidate(start, end, mics, true, p.micTrailing, opts.Decimation)
	case goodDMet:
		p.applyCandidate(start, end, dmet, true, p.dmetricTrailing, opts.Decimation)
	default:
		return false
	}
	return true
}

// micTrailing reports whether a trailing 'n' should become 'b'.
func (p *Project) micTrailing(frame int) bool {
	m := p.mic(frame)
	return m[matchIndex(MatchN)] > m[matchIndex(MatchB)]*2
}

func (p *Project) dmetricTrailing(frame int) bool {
	mm := triple(p.mmetrics, frame)
	return float64(mm[dmetricIndex(MatchN)]) > float64(mm[dmetricIndex(MatchB)])*1.5
}

func (p *Project) applyCandidate(start, end int, c candidate, fixFirst bool, trailing func(int) bool, drop DropDuplicate) {
	for i := start; i < end; i++ {
		p.setMatch(i, c.pattern[(i+c.offset)%len(c.pattern)])
	}
	last := end - 1
	if end == p.sourceFrames && p.match(last) == MatchN {
		p.setMatch(last, MatchB)
	}
	if fixFirst && start == 0 && p.match(0) == MatchB {
		p.setMatch(0, MatchN)
	}
	if p.match(last) == MatchN && trailing(last) {
		p.setMatch(last, MatchB)
	}

	if c.pattern == "c" {
		for i := start; i < end; i++ {
			p.deleteDecimated(i)
		}
		return
	}
	p.applyGuessedDecimation(start, end, 4-c.offset, drop)
}

var matchTemplates = [5]string{"ncccn", "nnccc", "cnncc", "ccnnc", "cccnn"}

func (p *Project) guessFromMatches(start, end int, opts GuessOptions) bool {
	var positions [5]int
	total := 0
	for i := start; i < min(end, p.sourceFrames-1)-1; i++ {
		if p.originalMatch(i) == MatchN && p.originalMatch(i+1) == MatchC {
			positions[i%5]++
			total++
		}
	}

	best, nextBest := 0, 0
	top := -1
	for i, n := range positions {
		if n > top {
			top = n
			best = i
		}
	}
	top = -1
	for i, n := range positions {
		if i != best && n > top {
			top = n
			nextBest = i
		}
	}

	var bestPercent, nextPercent float64
	if total > 0 {
		bestPercent = float64(positions[best]) * 100 / float64(total)
		nextPercent = float64(positions[nextBest]) * 100 / float64(total)
	}
	if !(bestPercent > 40 && bestPercent-nextPercent > 10) {
		return false
	}

	p.applyGuessedDecimation(start, end-1, best, opts.Decimation)

	pattern := []byte(matchTemplates[best])
	if opts.ThirdNMatch == ThirdNMatchAlways {
		pattern[(best+3)%5] = MatchN
	}
	for i := start; i < end-1; i++ {
		if opts.ThirdNMatch == ThirdNMatchIfPrettier && pattern[i%5] == MatchC && pattern[(i+1)%5] == MatchN {
			m := p.mic(i)
			if m[matchIndex(MatchN)] < m[matchIndex(MatchC)] {
				p.setMatch(i, MatchN)
			} else {
				p.setMatch(i, MatchC)
			}
			continue
		}
		p.setMatch(i, pattern[i%5])
	}

	last := end - 1
	if p.match(last) == MatchN && p.micTrailing(last) {
		p.setMatch(last, MatchB)
	}
	return true
}

// micAt returns the mic of frame for match m, or 0 past the last frame.
func (p *Project) micAt(frame int, m byte) int {
	if frame >= p.sourceFrames {
		return 0
	}
	return p.mic(frame)[matchIndex(m)]
}

// applyGuessedDecimation rewrites the decimation of [start, end) so that
// one of the two duplicates at firstDup and firstDup+1 is dropped from every
// cycle. Cycles shared with a neighbouring section are only touched inside
// this section.
func (p *Project) applyGuessedDecimation(start, end, firstDup int, policy DropDuplicate) {
	if policy == DropUglierDuplicatePerCycle && firstDup == 4 {
		policy = DropUglierDuplicatePerSection
	}

	drop := -1
	switch policy {
	case DropUglierDuplicatePerSection:
		dropN, dropC := 0, 0
		for i := start; i < min(end, p.sourceFrames-1); i++ {
			if i%5 != firstDup {
				continue
			}
			if p.micAt(i, MatchN) > p.micAt(i+1, MatchC) {
				dropN++
			} else {
				dropC++
			}
		}
		if dropN > dropC {
			drop = firstDup
		} else {
			drop = (firstDup + 1) % 5
		}
	case DropFirstDuplicate:
		drop = firstDup
	case DropSecondDuplicate:
		drop = (firstDup + 1) % 5
	}

	firstCycle := start / 5
	lastCycle := (end - 1) / 5
	for i := firstCycle; i <= lastCycle; i++ {
		if policy == DropUglierDuplicatePerCycle {
			drop = -1
			if i == firstCycle {
				if start%5 > firstDup+1 {
					continue
				} else if start%5 > firstDup {
					drop = firstDup + 1
				}
			} else if i == lastCycle {
				if (end-1)%5 < firstDup {
					continue
				} else if (end-1)%5 < firstDup+1 {
					drop = firstDup
				}
			}
			if drop == -1 {
				if p.micAt(i*5+firstDup, MatchN) > p.micAt(i*5+firstDup+1, MatchC) {
					drop = firstDup
				} else {
					drop = (firstDup + 1) % 5
				}
			}
		}

		switch {
		case i == firstCycle:
			for j := start; j < (i+1)*5 && j < p.sourceFrames; j++ {
				p.deleteDecimated(j)
			}
		case i == lastCycle:
			for j := i * 5; j < end; j++ {
				p.deleteDecimated(j)
			}
		default:
			p.decimatedFrames += len(offsets(p.decimated[i]))
			p.decimated[i] = 0
		}

		if f := i*5 + drop; f >= start && f < end {
			p.addDecimated(f)
		}
	}
	p.SetModified(true)
}
