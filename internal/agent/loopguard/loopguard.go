// Package loopguard implements the Loop Detector: a bounded history of
// recent tool invocations classified for pathological repetition before the
// dispatcher ever invokes a handler.
package loopguard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reactorhq/agent/pkg/models"
)

// highSignalKeys is the fixed projection used to build a call's fingerprint.
// Order matters for determinism when falling back to the whole object.
var highSignalKeys = []string{
	"command", "query", "path", "file", "url", "message", "content", "action", "method",
}

// fieldWeights favors high-signal keys in the semantic-similarity classifier.
var fieldWeights = map[string]float64{
	"command": 1.0, "query": 1.0, "message": 1.0, "content": 1.0,
	"path": 0.9, "file": 0.9, "url": 0.85, "action": 0.8, "method": 0.8,
}

const defaultFieldWeight = 0.5

// Config tunes the detector's thresholds. DefaultConfig returns the defaults;
// New uses them only when given a nil Config, and the fields of a non-nil
// Config are used as given, zero values included.
type Config struct {
	RingCapacity               int
	ExactRepeatThreshold       int
	ParameterCycleWindowTools  int // M: window is 2*M records of a single tool
	ParameterCycleThreshold    int
	SequenceLengths            []int // L values tried for tool-sequence detection
	SemanticSimilarityEnabled  bool
	SemanticSimilarityThreshold float64
	SemanticTimeGate           time.Duration
	// ExemptPatterns lists tool name patterns (exact, "prefix*", "*suffix",
	// "mcp:*"-style) that bypass detection entirely, e.g. a status-poll tool
	// that is supposed to be called repeatedly.
	ExemptPatterns []string
}

// DefaultConfig returns the spec.md §4.3 defaults.
func DefaultConfig() *Config {
	return &Config{
		RingCapacity:                25,
		ExactRepeatThreshold:        3,
		ParameterCycleWindowTools:   5,
		ParameterCycleThreshold:     3,
		SequenceLengths:             []int{2, 3},
		SemanticSimilarityEnabled:   true,
		SemanticSimilarityThreshold: 0.85,
		SemanticTimeGate:            5 * time.Second,
	}
}

// Detector maintains the ring of recent ToolCallRecords and classifies every
// prospective call before the dispatcher invokes its handler.
type Detector struct {
	mu      sync.Mutex
	cfg     *Config
	ring    []models.ToolCallRecord
	nextSeq int64
}

// New builds a Detector. A nil config uses DefaultConfig.
func New(cfg *Config) *Detector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Detector{cfg: cfg}
}

// CanonicalizeParams serializes args with recursively sorted map keys (so
// semantically equal objects serialize identically regardless of field
// order) and projects a fingerprint onto the fixed high-signal key set.
func CanonicalizeParams(args json.RawMessage) (serialized string, fingerprint string, err error) {
	var v interface{}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return "", "", fmt.Errorf("canonicalize params: %w", err)
	}

	// encoding/json.Marshal sorts map[string]interface{} keys lexicographically,
	// so round-tripping through interface{} is sufficient for determinism.
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("canonicalize params: %w", err)
	}
	serialized = string(canonical)

	obj, ok := v.(map[string]interface{})
	if !ok {
		return serialized, serialized, nil
	}
	projection := make(map[string]interface{}, len(highSignalKeys))
	found := false
	for _, k := range highSignalKeys {
		if val, present := obj[k]; present {
			projection[k] = val
			found = true
		}
	}
	if !found {
		return serialized, serialized, nil
	}
	fp, err := json.Marshal(projection)
	if err != nil {
		return serialized, serialized, nil
	}
	return serialized, string(fp), nil
}

// Check records the prospective call and evaluates the five classifiers in
// spec order, returning the first that fires. The call is recorded
// regardless of the verdict, so a vetoed call still counts toward future
// pattern detection (the handler simply never runs).
func (d *Detector) Check(toolName string, args json.RawMessage) models.LoopDetectionResult {
	if matchesExemptPattern(d.cfg.ExemptPatterns, toolName) {
		return models.LoopDetectionResult{IsLoop: false}
	}

	serialized, fingerprint, err := CanonicalizeParams(args)
	if err != nil {
		serialized = string(args)
		fingerprint = serialized
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSeq++
	record := models.ToolCallRecord{
		ToolName:             toolName,
		SerializedParameters: serialized,
		ParameterFingerprint: fingerprint,
		Timestamp:            time.Now(),
		SequenceNumber:       d.nextSeq,
	}
	d.ring = append(d.ring, record)
	if cap := d.cfg.RingCapacity; cap > 0 && len(d.ring) > cap {
		d.ring = d.ring[len(d.ring)-cap:]
	}

	if res := d.checkExactRepeat(); res.IsLoop {
		return res
	}
	if res := d.checkAlternatingPattern(); res.IsLoop {
		return res
	}
	if res := d.checkParameterCycle(); res.IsLoop {
		return res
	}
	if res := d.checkToolSequence(); res.IsLoop {
		return res
	}
	if d.cfg.SemanticSimilarityEnabled {
		if res := d.checkSemanticSimilarity(); res.IsLoop {
			return res
		}
	}
	return models.LoopDetectionResult{IsLoop: false}
}

// Reset clears all recorded history. A fresh Check sequence after Reset
// classifies identically to a brand-new Detector.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ring = nil
	d.nextSeq = 0
}

func (d *Detector) checkExactRepeat() models.LoopDetectionResult {
	k := d.cfg.ExactRepeatThreshold
	if len(d.ring) < k {
		return models.LoopDetectionResult{}
	}
	tail := d.ring[len(d.ring)-k:]
	name, params := tail[0].ToolName, tail[0].SerializedParameters
	for _, r := range tail[1:] {
		if r.ToolName != name || r.SerializedParameters != params {
			return models.LoopDetectionResult{}
		}
	}
	return models.LoopDetectionResult{
		IsLoop:      true,
		LoopType:    models.LoopExactRepeat,
		RepeatCount: k,
		Description: fmt.Sprintf("tool %q invoked %d times in a row with identical parameters", name, k),
		Suggestion:  "try a different approach or different parameters",
	}
}

func (d *Detector) checkAlternatingPattern() models.LoopDetectionResult {
	if len(d.ring) < 4 {
		return models.LoopDetectionResult{}
	}
	last4 := d.ring[len(d.ring)-4:]
	a, b := last4[0], last4[1]
	if a.ToolName == b.ToolName && a.SerializedParameters == b.SerializedParameters {
		return models.LoopDetectionResult{}
	}
	matches := func(x, y models.ToolCallRecord) bool {
		return x.ToolName == y.ToolName && x.SerializedParameters == y.SerializedParameters
	}
	if matches(last4[0], last4[2]) && matches(last4[1], last4[3]) {
		return models.LoopDetectionResult{
			IsLoop:      true,
			LoopType:    models.LoopAlternatingPattern,
			RepeatCount: 2,
			Description: fmt.Sprintf("alternating between %q and %q", a.ToolName, b.ToolName),
			Suggestion:  "break the alternation; the two actions are not converging",
		}
	}
	return models.LoopDetectionResult{}
}

func (d *Detector) checkParameterCycle() models.LoopDetectionResult {
	m := d.cfg.ParameterCycleWindowTools
	threshold := d.cfg.ParameterCycleThreshold
	if m <= 0 {
		return models.LoopDetectionResult{}
	}
	windowSize := 2 * m
	if len(d.ring) < windowSize {
		windowSize = len(d.ring)
	}
	window := d.ring[len(d.ring)-windowSize:]

	byTool := make(map[string][]string)
	for _, r := range window {
		byTool[r.ToolName] = append(byTool[r.ToolName], r.SerializedParameters)
	}
	for tool, params := range byTool {
		counts := make(map[string]int)
		for _, p := range params {
			counts[p]++
		}
		for _, n := range counts {
			if n >= threshold {
				return models.LoopDetectionResult{
					IsLoop:      true,
					LoopType:    models.LoopParameterCycle,
					RepeatCount: n,
					Description: fmt.Sprintf("tool %q called with the same parameters %d times within the recent window", tool, n),
					Suggestion:  "the repeated parameters are not producing progress; try different inputs",
				}
			}
		}
	}
	return models.LoopDetectionResult{}
}

func (d *Detector) checkToolSequence() models.LoopDetectionResult {
	for _, l := range d.cfg.SequenceLengths {
		need := 2 * l
		if len(d.ring) < need {
			continue
		}
		window := d.ring[len(d.ring)-need:]
		first, second := window[:l], window[l:]
		equal := true
		for i := 0; i < l; i++ {
			if first[i].ToolName != second[i].ToolName || first[i].SerializedParameters != second[i].SerializedParameters {
				equal = false
				break
			}
		}
		if equal {
			names := make([]string, l)
			for i, r := range first {
				names[i] = r.ToolName
			}
			return models.LoopDetectionResult{
				IsLoop:      true,
				LoopType:    models.LoopToolSequence,
				RepeatCount: 2,
				Description: fmt.Sprintf("the %d-call sequence [%s] just repeated verbatim", l, strings.Join(names, ", ")),
				Suggestion:  "the sequence is repeating without new progress",
			}
		}
	}
	return models.LoopDetectionResult{}
}

func (d *Detector) checkSemanticSimilarity() models.LoopDetectionResult {
	if len(d.ring) < 2 {
		return models.LoopDetectionResult{}
	}
	current := d.ring[len(d.ring)-1]
	for i := len(d.ring) - 2; i >= 0; i-- {
		prior := d.ring[i]
		if prior.ToolName != current.ToolName {
			continue
		}
		elapsed := current.Timestamp.Sub(prior.Timestamp)
		if elapsed < d.cfg.SemanticTimeGate {
			continue
		}
		sim := fieldWiseSimilarity(prior.ParameterFingerprint, current.ParameterFingerprint)
		if sim >= d.cfg.SemanticSimilarityThreshold {
			return models.LoopDetectionResult{
				IsLoop:      true,
				LoopType:    models.LoopSemanticSimilarity,
				Similarity:  sim,
				Description: fmt.Sprintf("tool %q invoked with parameters %.0f%% similar to a call %s ago", current.ToolName, sim*100, elapsed.Round(time.Second)),
				Suggestion:  "the parameters barely differ from a recent call; reconsider the approach",
			}
		}
	}
	return models.LoopDetectionResult{}
}

// fieldWiseSimilarity compares two fingerprint JSON objects field by field:
// 1.0 if equal, a normalized edit-distance score for differing strings, 0.5
// for same-type-different-value, 0 otherwise. The overall score is the
// weighted mean over the union of fields present in either fingerprint.
func fieldWiseSimilarity(a, b string) float64 {
	var objA, objB map[string]interface{}
	if err := json.Unmarshal([]byte(a), &objA); err != nil {
		objA = map[string]interface{}{"_raw": a}
	}
	if err := json.Unmarshal([]byte(b), &objB); err != nil {
		objB = map[string]interface{}{"_raw": b}
	}

	keys := make(map[string]struct{})
	for k := range objA {
		keys[k] = struct{}{}
	}
	for k := range objB {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 1.0
	}

	sortedKeys := make([]string, 0, len(keys))
	for k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)

	var weightedSum, weightTotal float64
	for _, k := range sortedKeys {
		w, ok := fieldWeights[k]
		if !ok {
			w = defaultFieldWeight
		}
		weightTotal += w
		weightedSum += w * fieldScore(objA[k], objB[k])
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func fieldScore(a, b interface{}) float64 {
	if a == nil && b == nil {
		return 1.0
	}
	if a == nil || b == nil {
		return 0
	}
	sa, aIsString := a.(string)
	sb, bIsString := b.(string)
	if aIsString && bIsString {
		if sa == sb {
			return 1.0
		}
		return stringSimilarity(sa, sb)
	}
	if fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) {
		return 1.0
	}
	if sameJSONType(a, b) {
		return 0.5
	}
	return 0
}

func sameJSONType(a, b interface{}) bool {
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case float64:
		_, ok := b.(float64)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case []interface{}:
		_, ok := b.([]interface{})
		return ok
	case map[string]interface{}:
		_, ok := b.(map[string]interface{})
		return ok
	default:
		return false
	}
}

// stringSimilarity returns 1 - editDistance/maxLength on lowercased inputs.
func stringSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein(a, b)
	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		score = 0
	}
	return score
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// matchesExemptPattern supports exact, "prefix*", "*suffix", and "mcp:*"/
// "<server>.*"-style matches, mirroring the registry's own pattern matcher.
func matchesExemptPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if p == "*" || p == name {
			return true
		}
		if strings.HasSuffix(p, "*") && strings.HasPrefix(name, strings.TrimSuffix(p, "*")) {
			return true
		}
		if strings.HasPrefix(p, "*") && strings.HasSuffix(name, strings.TrimPrefix(p, "*")) {
			return true
		}
	}
	return false
}
