package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/model"
)

// Range is an inclusive interval of lines or samples.
type Range struct {
	First int
	Last  int
}

// Len returns the number of indices in r; zero or less when r is empty.
func (r Range) Len() int { return r.Last - r.First + 1 }

// Contains reports whether i lies in r.
func (r Range) Contains(i int) bool { return i >= r.First && i <= r.Last }

func (r Range) shift(k int) Range { return Range{First: r.First + k, Last: r.Last + k} }

// SegmentationState is the part of a SAR product rewritten by burst
// operations.
type SegmentationState struct {
	Bursts        []model.BurstRecord
	GCPs          []model.GCP
	FirstLineTime time.Time
	LastLineTime  time.Time
	NearRangeTime float64 // seconds
}

// Clone returns a deep copy of s.
func (s SegmentationState) Clone() SegmentationState {
	out := s
	out.Bursts = append([]model.BurstRecord(nil), s.Bursts...)
	out.GCPs = append([]model.GCP(nil), s.GCPs...)
	return out
}

// BurstGeometry carries the acquisition constants burst operations need.
type BurstGeometry struct {
	AzimuthTimeInterval time.Duration
	RangeSamplingRate   float64 // Hz
	LinesPerBurst       int
	SamplesPerBurst     int
}

// DeburstResult lists the image line ranges kept by Deburst, in image order,
// and the sample range they share.
type DeburstResult struct {
	Lines   []Range
	Samples Range
}

// ExtractionResult is the line and sample window kept by BurstExtraction.
type ExtractionResult struct {
	Lines   Range
	Samples Range
}

// ConcatenateResult holds, for each burst, the lines and samples to read
// from that burst's own image to rebuild the debursted raster. LinesOffset
// is the number of lines between the first burst and the reference burst.
type ConcatenateResult struct {
	LinesBursts   []Range
	SamplesBursts []Range
	LinesOffset   int
}

// OverlapResult is the region shared by two consecutive bursts, in the
// coordinates of each burst image.
type OverlapResult struct {
	LinesUp    Range
	LinesLow   Range
	SamplesUp  Range
	SamplesLow Range
}

// Deburst merges all bursts into one continuous burst. The overlap between
// consecutive bursts is split: ⌊overlap/2⌋ lines are dropped from the tail
// of the earlier burst, and the head of the later burst is trimmed up to the
// line following the retained tail. GCPs on dropped lines are discarded and
// the rest renumbered. With onlyValidSample, samples are restricted to those
// valid in every burst.
//
// It returns false, with s unchanged, when there is at most one burst.
func Deburst(s SegmentationState, g BurstGeometry, onlyValidSample bool) (SegmentationState, DeburstResult, bool) {
	if len(s.Bursts) <= 1 {
		return s.Clone(), singleBurstDeburst(s.Bursts), false
	}

	plan := planDeburst(s.Bursts, g.AzimuthTimeInterval)
	first := s.Bursts[0]
	last := s.Bursts[len(s.Bursts)-1]

	res := DeburstResult{
		Lines:   plan.lines,
		Samples: Range{First: first.StartSample, Last: first.EndSample},
	}
	var validSamples *Range
	if onlyValidSample {
		res.Samples = plan.samples
		validSamples = &plan.samples
	}

	burst := model.BurstRecord{
		StartLine:        0,
		EndLine:          plan.lastLine,
		StartSample:      first.StartSample,
		EndSample:        first.EndSample,
		AzimuthStartTime: first.AzimuthStartTime,
		AzimuthStopTime:  last.AzimuthStopTime,
		AzimuthAnxTime:   first.AzimuthAnxTime,
	}
	if onlyValidSample {
		burst.StartSample = 0
		burst.EndSample = plan.samples.Last - plan.samples.First
	}

	next := SegmentationState{
		Bursts:        []model.BurstRecord{burst},
		GCPs:          remapGCPs(s.GCPs, plan.lines, validSamples),
		FirstLineTime: burst.AzimuthStartTime,
		LastLineTime:  burst.AzimuthStopTime,
		NearRangeTime: s.NearRangeTime,
	}
	if onlyValidSample {
		next.NearRangeTime += samplesToRangeTime(plan.samples.First, g.RangeSamplingRate)
	}
	return next, res, true
}

// BurstExtraction keeps a single burst as if it were the whole product. With
// allPixels the full burst raster (LinesPerBurst × SamplesPerBurst, invalid
// borders included) is kept; otherwise only the burst's valid window.
//
// It returns false, with s unchanged, when there is at most one burst or
// index is out of range.
func BurstExtraction(s SegmentationState, g BurstGeometry, index int, allPixels bool) (SegmentationState, ExtractionResult, bool) {
	if len(s.Bursts) <= 1 || index < 0 || index >= len(s.Bursts) {
		res := ExtractionResult{}
		if len(s.Bursts) == 1 {
			b := s.Bursts[0]
			res = ExtractionResult{
				Lines:   Range{First: b.StartLine, Last: b.EndLine},
				Samples: Range{First: b.StartSample, Last: b.EndSample},
			}
		}
		return s.Clone(), res, false
	}

	b := s.Bursts[index]
	ati := g.AzimuthTimeInterval

	var res ExtractionResult
	burst := model.BurstRecord{
		AzimuthStartTime: b.AzimuthStartTime,
		AzimuthStopTime:  b.AzimuthStopTime,
		AzimuthAnxTime:   b.AzimuthAnxTime,
	}
	if allPixels {
		res.Lines = Range{First: index * g.LinesPerBurst, Last: (index+1)*g.LinesPerBurst - 1}
		res.Samples = Range{First: 0, Last: g.SamplesPerBurst - 1}

		lead := time.Duration(b.StartLine-res.Lines.First) * ati
		burst.AzimuthStartTime = b.AzimuthStartTime.Add(-lead)
		burst.AzimuthStopTime = burst.AzimuthStartTime.Add(time.Duration(res.Lines.Last-res.Lines.First) * ati)
		burst.AzimuthAnxTime = b.AzimuthAnxTime - lead.Seconds()
	} else {
		res.Lines = Range{First: b.StartLine, Last: b.EndLine}
		res.Samples = Range{First: b.StartSample, Last: b.EndSample}
	}
	burst.EndLine = res.Lines.Last - res.Lines.First
	burst.EndSample = res.Samples.Last - res.Samples.First

	gcps := make([]model.GCP, 0, len(s.GCPs))
	for _, gcp := range s.GCPs {
		line := int(math.Floor(gcp.Row + 0.5))
		sample := int(math.Floor(gcp.Col + 0.5))
		if !res.Lines.Contains(line) || !res.Samples.Contains(sample) {
			continue
		}
		gcp.Row -= float64(res.Lines.First)
		gcp.Col -= float64(res.Samples.First)
		gcps = append(gcps, gcp)
	}

	next := SegmentationState{
		Bursts:        []model.BurstRecord{burst},
		GCPs:          gcps,
		FirstLineTime: burst.AzimuthStartTime,
		LastLineTime:  burst.AzimuthStopTime,
		NearRangeTime: s.NearRangeTime + samplesToRangeTime(res.Samples.First, g.RangeSamplingRate),
	}
	return next, res, true
}

// DeburstAndConcatenate debursts like Deburst with valid samples only, and
// also reports per burst which lines and samples of that burst's image
// survive. firstBurstIndex selects the burst LinesOffset is measured to.
// With inputWithInvalidPixels the per-burst ranges are expressed in burst
// images that still hold their invalid border lines and samples.
//
// It returns false, with s unchanged, when there is at most one burst or
// firstBurstIndex is out of range.
func DeburstAndConcatenate(s SegmentationState, g BurstGeometry, firstBurstIndex int, inputWithInvalidPixels bool) (SegmentationState, ConcatenateResult, bool) {
	if len(s.Bursts) <= 1 || firstBurstIndex < 0 || firstBurstIndex >= len(s.Bursts) {
		res := ConcatenateResult{}
		if len(s.Bursts) == 1 {
			b := s.Bursts[0]
			res.LinesBursts = []Range{{First: b.StartLine, Last: b.EndLine}}
			res.SamplesBursts = []Range{{First: b.StartSample, Last: b.EndSample}}
		}
		return s.Clone(), res, false
	}

	ati := g.AzimuthTimeInterval
	plan := planDeburst(s.Bursts, ati)
	samples := plan.samples

	res := ConcatenateResult{
		LinesBursts:   make([]Range, len(s.Bursts)),
		SamplesBursts: make([]Range, len(s.Bursts)),
		LinesOffset:   durationLines(s.Bursts[firstBurstIndex].AzimuthStartTime.Sub(s.Bursts[0].AzimuthStartTime), ati),
	}
	for i, b := range s.Bursts {
		lines := Range{First: plan.halfBegin[i], Last: b.EndLine - b.StartLine - plan.halfEnd[i]}

		start := 0
		if b.StartSample < samples.First {
			start = samples.First - b.StartSample
		}
		samplesRange := Range{First: start, Last: start + samples.Last - samples.First}

		if inputWithInvalidPixels {
			lines = lines.shift(b.StartLine - i*g.LinesPerBurst)
			samplesRange = samplesRange.shift(b.StartSample)
		}
		res.LinesBursts[i] = lines
		res.SamplesBursts[i] = samplesRange
	}

	first := s.Bursts[0]
	last := s.Bursts[len(s.Bursts)-1]
	burst := model.BurstRecord{
		StartLine:        0,
		EndLine:          plan.lastLine,
		StartSample:      0,
		EndSample:        samples.Last - samples.First,
		AzimuthStartTime: first.AzimuthStartTime,
		AzimuthStopTime:  last.AzimuthStopTime,
		AzimuthAnxTime:   first.AzimuthAnxTime,
	}

	next := SegmentationState{
		Bursts:        []model.BurstRecord{burst},
		GCPs:          remapGCPs(s.GCPs, plan.lines, &samples),
		FirstLineTime: burst.AzimuthStartTime,
		LastLineTime:  burst.AzimuthStopTime,
		NearRangeTime: s.NearRangeTime + samplesToRangeTime(samples.First, g.RangeSamplingRate),
	}
	return next, res, true
}

// Overlap returns the lines and samples shared by burst burstIndUp and the
// following burst. Both line ranges hold the same number of lines. It
// returns false when there is no following burst.
func Overlap(s SegmentationState, g BurstGeometry, burstIndUp int, inputWithInvalidPixels bool) (OverlapResult, bool) {
	if burstIndUp < 0 || len(s.Bursts) < burstIndUp+2 {
		return OverlapResult{}, false
	}

	ati := g.AzimuthTimeInterval
	up := s.Bursts[burstIndUp]
	low := s.Bursts[burstIndUp+1]

	length := overlapLines(up, low, ati)
	firstUp := durationLines(low.AzimuthStartTime.Sub(up.AzimuthStartTime), ati)

	res := OverlapResult{
		LinesUp:  Range{First: firstUp, Last: firstUp + length - 1},
		LinesLow: Range{First: 0, Last: length - 1},
	}

	shared := Range{
		First: max(up.StartSample, low.StartSample),
		Last:  min(up.EndSample, low.EndSample),
	}
	if inputWithInvalidPixels {
		res.LinesUp = res.LinesUp.shift(up.StartLine - burstIndUp*g.LinesPerBurst)
		res.LinesLow = res.LinesLow.shift(low.StartLine - (burstIndUp+1)*g.LinesPerBurst)
		res.SamplesUp = shared
		res.SamplesLow = shared
	} else {
		res.SamplesUp = shared.shift(-up.StartSample)
		res.SamplesLow = shared.shift(-low.StartSample)
	}
	return res, true
}

// ImageLineToDeburstLine maps a line of the burst image to its line in the
// debursted image. It returns false when the line was dropped.
func ImageLineToDeburstLine(lines []Range, imageLine int) (int, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	offset := lines[0].First
	for i, r := range lines {
		if r.Contains(imageLine) {
			return imageLine - offset, true
		}
		if i+1 < len(lines) {
			offset += lines[i+1].First - r.Last - 1
		}
	}
	return 0, false
}

// DeburstLineToImageLine is the inverse of ImageLineToDeburstLine. It
// returns false past the last retained line.
func DeburstLineToImageLine(lines []Range, deburstLine int) (int, bool) {
	if len(lines) == 0 || deburstLine < 0 {
		return 0, false
	}
	line := deburstLine + lines[0].First
	for i, r := range lines {
		if line <= r.Last {
			return line, true
		}
		if i+1 < len(lines) {
			line += lines[i+1].First - r.Last - 1
		}
	}
	return 0, false
}

type deburstPlan struct {
	lines     []Range // retained image lines of each burst
	halfBegin []int   // lines dropped at the head of each burst
	halfEnd   []int   // lines dropped at the tail of each burst
	samples   Range   // samples valid in every burst
	lastLine  int     // last line of the debursted image
}

func planDeburst(bursts []model.BurstRecord, ati time.Duration) deburstPlan {
	n := len(bursts)
	p := deburstPlan{
		lines:     make([]Range, n),
		halfBegin: make([]int, n),
		halfEnd:   make([]int, n),
		samples:   Range{First: bursts[0].StartSample, Last: bursts[0].EndSample},
	}

	for i := 0; i+1 < n; i++ {
		cur, next := bursts[i], bursts[i+1]

		halfEnd := overlapLines(cur, next, ati) / 2
		endTimeInNext := cur.AzimuthStopTime.Add(-time.Duration(halfEnd-1) * ati)
		halfBegin := int(math.Floor(0.5 + float64(endTimeInNext.Sub(next.AzimuthStartTime))/float64(ati)))

		p.halfEnd[i] = halfEnd
		p.halfBegin[i+1] = max(halfBegin, 0)
	}

	total := 0
	for i, b := range bursts {
		p.lines[i] = Range{First: b.StartLine + p.halfBegin[i], Last: b.EndLine - p.halfEnd[i]}
		total += p.lines[i].Len()

		p.samples.First = max(p.samples.First, b.StartSample)
		p.samples.Last = min(p.samples.Last, b.EndSample)
	}
	p.lastLine = total - 1
	return p
}

// overlapLines is the number of whole lines during which both bursts were
// acquired.
func overlapLines(cur, next model.BurstRecord, ati time.Duration) int {
	overlap := cur.AzimuthStopTime.Sub(next.AzimuthStartTime)
	if overlap <= 0 {
		return 0
	}
	return int(overlap / ati)
}

func durationLines(d, ati time.Duration) int {
	return int(math.Round(float64(d) / float64(ati)))
}

func samplesToRangeTime(samples int, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(samples) / rate
}

// remapGCPs moves GCPs into debursted image coordinates. GCPs on dropped
// lines, or outside samples when it is set, are discarded.
func remapGCPs(gcps []model.GCP, lines []Range, samples *Range) []model.GCP {
	out := make([]model.GCP, 0, len(gcps))
	for _, gcp := range gcps {
		line := int(math.Floor(gcp.Row + 0.5))
		newLine, ok := ImageLineToDeburstLine(lines, line)
		if !ok {
			continue
		}
		if samples != nil {
			sample := int(math.Floor(gcp.Col + 0.5))
			if !samples.Contains(sample) {
				continue
			}
			gcp.Col -= float64(samples.First)
		}
		gcp.Row = float64(newLine) + (gcp.Row - float64(line))
		out = append(out, gcp)
	}
	return out
}

func singleBurstDeburst(bursts []model.BurstRecord) DeburstResult {
	if len(bursts) == 0 {
		return DeburstResult{}
	}
	b := bursts[0]
	return DeburstResult{
		Lines:   []Range{{First: b.StartLine, Last: b.EndLine}},
		Samples: Range{First: b.StartSample, Last: b.EndSample},
	}
}
