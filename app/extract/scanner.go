package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/venue"
)

// Default scan windows, in lines of page text.
const (
	TimeLookback            = 5
	TitleLookback           = 30
	NearestTitleMaxDistance = 50
	MinTitleRunes           = 2
	MaxTitleRunes           = 30

	maxHallRunes = 30
)

var (
	leadingClockPattern = regexp.MustCompile(`^(\d{1,2}:\d{2})`)
	anyClockPattern     = regexp.MustCompile(`(?:^|\D)(\d{1,2}:\d{2})(?:\D|$)`)
	titleStartPattern   = regexp.MustCompile(`^[0-9:~\-()\[\]관]`)
	seatStatusPattern   = regexp.MustCompile(`(석$|잔여|매진|마감|예매종료|\d+\s*/\s*\d+)`)
	hallPattern         = regexp.MustCompile(`(?i)(\d+\s*관|imax|4dx|screenx|dolby|atmos|super\s*plex|mx4d|laser|리클라이너|컴포트|샤롯데|부티크|씨네앤포레|수퍼플렉스)`)
)

// Schedule page chrome that looks like a title but never is one.
var uiWords = []string{
	"더빙", "자막", "조조", "매진", "마감", "예매종료", "잔여", "좌석", "개봉", "전체", "오전", "오후", "심야",
	"영화순", "시간순", "예매", "일반", "특별관", "필름", "디지털", "재개봉", "재상영", "N차상영", "기획전",
	"영화제", "쿠키", "스페셜", "한정", "단독", "독점", "절찬", "대개봉", "개봉작", "상영작", "상영중",
	"상영예정", "리클라이너", "아트하우스", "극장선택", "극장을 선택해 주세요", "상영시간표", "상영시간",
	"관람등급", "전체관람가", "12세이상관람가", "15세이상관람가", "청소년관람불가",
}

// ScanConfig holds the text scanner's tunables.
type ScanConfig struct {
	TimeLookback            int
	TitleLookback           int
	NearestTitleMaxDistance int
	MinTitleRunes           int
	MaxTitleRunes           int
	Script                  *unicode.RangeTable
	ExcludeTitles           []string
}

func scanConfigFrom(s venue.ScanSettings, exclude []string) ScanConfig {
	script, err := s.TitleScript()
	if err != nil {
		script = unicode.Hangul
	}

	c := ScanConfig{
		TimeLookback:            s.TimeLookback,
		TitleLookback:           s.TitleLookback,
		NearestTitleMaxDistance: s.NearestTitleMaxDistance,
		MinTitleRunes:           s.MinTitleRunes,
		MaxTitleRunes:           s.MaxTitleRunes,
		Script:                  script,
		ExcludeTitles:           exclude,
	}
	if c.TimeLookback == 0 {
		c.TimeLookback = TimeLookback
	}
	if c.TitleLookback == 0 {
		c.TitleLookback = TitleLookback
	}
	if c.NearestTitleMaxDistance == 0 {
		c.NearestTitleMaxDistance = NearestTitleMaxDistance
	}
	if c.MinTitleRunes == 0 {
		c.MinTitleRunes = MinTitleRunes
	}
	if c.MaxTitleRunes == 0 {
		c.MaxTitleRunes = MaxTitleRunes
	}
	return c
}

// Hit is one special screening found in page text.
type Hit struct {
	Title string
	Time  string
	Hall  string
	Type  event.Type
	Line  int
}

type scanState int

const (
	seekingTitle scanState = iota
	accumulatingTimes
	emitting
)

// TextScanner recovers (title, time, type) triples from the visible text of a
// schedule page. Titles, times and event tags are separate lines, so the
// scanner tracks the most recent title and time and attaches them to each
// keyword line it meets.
type TextScanner struct {
	cfg     ScanConfig
	matcher *Matcher
	exclude map[string]bool
	names   []string
}

func NewTextScanner(cfg ScanConfig, matcher *Matcher, v venue.Venue) *TextScanner {
	exclude := make(map[string]bool, len(uiWords)+len(cfg.ExcludeTitles))
	for _, w := range uiWords {
		exclude[w] = true
	}
	for _, w := range cfg.ExcludeTitles {
		exclude[strings.TrimSpace(w)] = true
	}

	var names []string
	for _, n := range []string{v.Name, v.Brand, v.DisplayName()} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	return &TextScanner{cfg: cfg, matcher: matcher, exclude: exclude, names: names}
}

type scan struct {
	*TextScanner
	lines  []string
	titles []int

	state     scanState
	title     string
	titleLine int
	time      string
	timeLine  int
	hall      string

	pending []Hit
	index   map[string]int
	hits    []Hit
}

// Scan runs a single forward pass over text.
func (ts *TextScanner) Scan(text string) []Hit {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	s := &scan{
		TextScanner: ts,
		lines:       lines,
		state:       seekingTitle,
		titleLine:   -1,
		timeLine:    -1,
		index:       make(map[string]int),
	}

	for i, line := range lines {
		if line != "" && ts.IsTitle(line) {
			s.titles = append(s.titles, i)
		}
	}

	for i, line := range lines {
		if line == "" {
			continue
		}
		s.step(i, line)
	}

	s.state = emitting
	s.flush()
	return s.hits
}

func (s *scan) step(i int, line string) {
	if types := s.matcher.Match(line); len(types) > 0 {
		if m := leadingClockPattern.FindStringSubmatch(line); m != nil {
			s.time, s.timeLine = m[1], i
		}
		s.onEvent(i, line, types)
		return
	}

	if s.IsTitle(line) {
		s.state = emitting
		s.flush()
		s.title, s.titleLine = line, i
		s.time, s.timeLine = "", -1
		s.hall = ""
		s.state = accumulatingTimes
		return
	}

	if m := leadingClockPattern.FindStringSubmatch(line); m != nil {
		s.time, s.timeLine = m[1], i
	}

	if hallPattern.MatchString(line) && utf8.RuneCountInString(line) <= maxHallRunes*2 {
		s.hall = truncateRunes(line, maxHallRunes)
	}
}

func (s *scan) onEvent(i int, line string, types []event.Type) {
	clock := ""
	if m := anyClockPattern.FindStringSubmatch(line); m != nil {
		clock = m[1]
	} else if s.timeLine >= 0 && i-s.timeLine <= s.cfg.TimeLookback && s.timeLine > s.titleLine {
		clock = s.time
	}
	if clock == "" {
		return
	}

	title := event.PlaceholderTitle
	if s.titleLine >= 0 && i-s.titleLine <= s.cfg.TitleLookback {
		title = s.title
	} else if nearest := s.nearestTitle(i); nearest != "" {
		title = nearest
	}

	key := title + "\x00" + clock
	if idx, ok := s.index[key]; ok {
		s.pending[idx].Type = event.JoinTypes(append([]event.Type{s.pending[idx].Type}, types...)...)
		return
	}

	s.index[key] = len(s.pending)
	s.pending = append(s.pending, Hit{
		Title: title,
		Time:  clock,
		Hall:  s.hall,
		Type:  event.JoinTypes(types...),
		Line:  i,
	})
}

func (s *scan) nearestTitle(i int) string {
	best, bestDist := -1, s.cfg.NearestTitleMaxDistance
	for _, t := range s.titles {
		d := t - i
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = t, d
		}
	}
	if best < 0 {
		return ""
	}
	return s.lines[best]
}

func (s *scan) flush() {
	if s.state != emitting {
		return
	}
	s.hits = append(s.hits, s.pending...)
	s.pending = nil
	s.index = make(map[string]int)
	s.state = seekingTitle
}

// IsTitle reports whether line looks like a movie title.
func (ts *TextScanner) IsTitle(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < ts.cfg.MinTitleRunes || n > ts.cfg.MaxTitleRunes {
		return false
	}
	if titleStartPattern.MatchString(line) {
		return false
	}
	if !containsScript(line, ts.cfg.Script) {
		return false
	}
	if ts.exclude[line] {
		return false
	}
	if seatStatusPattern.MatchString(line) || hallPattern.MatchString(line) {
		return false
	}
	for _, name := range ts.names {
		if line == name {
			return false
		}
	}
	return !ts.matcher.Matches(line)
}

func containsScript(s string, table *unicode.RangeTable) bool {
	if table == nil {
		return true
	}
	for _, r := range s {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
