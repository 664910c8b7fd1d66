package venue

import "github.com/lysyi3m/screening-comb/app/event"

// DefaultKeywords is used for any vendor whose catalog file lists none.
var DefaultKeywords = []Keyword{
	{Term: "무대인사", Type: event.TypeStageGreeting},
	{Term: "GV", Type: event.TypeDirectorTalk},
	{Term: "관객과의대화", Type: event.TypeDirectorTalk},
	{Term: "관객과의 대화", Type: event.TypeDirectorTalk},
	{Term: "시네마톡", Type: event.TypeDirectorTalk},
	{Term: "큐앤에이", Type: event.TypeDirectorTalk},
	{Term: "Q&A", Type: event.TypeDirectorTalk},
	{Term: "토크", Type: event.TypeDirectorTalk},
	{Term: "시사회", Type: event.TypePreview},
	{Term: "라이브뷰잉", Type: event.TypeSpecial},
	{Term: "라이브 뷰잉", Type: event.TypeSpecial},
	{Term: "콘서트", Type: event.TypeSpecial},
	{Term: "싱어롱", Type: event.TypeSpecial},
	{Term: "sing-along", Type: event.TypeSpecial},
	{Term: "응원상영", Type: event.TypeSpecial},
	{Term: "굿즈", Type: event.TypeSpecial},
	{Term: "특별상영", Type: event.TypeSpecial},
	{Term: "스페셜상영", Type: event.TypeSpecial},
}
