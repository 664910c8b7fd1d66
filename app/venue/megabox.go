package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lysyi3m/screening-comb/app/event"
)

const (
	MegaboxVendor  = "megabox"
	MegaboxBaseURL = "https://www.megabox.co.kr"
	megaboxPath    = "/on/oh/ohb/SimpleBooking/selectBokdList.do"

	// Any branch returns the full branch list; COEX is the one that always exists.
	megaboxSeedBranch = "1351"
)

var (
	_ Source     = (*Megabox)(nil)
	_ Discoverer = (*Megabox)(nil)
)

// Megabox reads the simple-booking schedule endpoint.
type Megabox struct {
	httpSource
	logger *slog.Logger
	today  func() event.Date
}

func NewMegabox(client *http.Client, baseURL, userAgent string, today func() event.Date, logger *slog.Logger) *Megabox {
	if baseURL == "" {
		baseURL = MegaboxBaseURL
	}
	return &Megabox{
		httpSource: httpSource{
			client:    client,
			baseURL:   baseURL,
			userAgent: userAgent,
			referer:   MegaboxBaseURL + "/booking",
		},
		logger: logger,
		today:  today,
	}
}

func (m *Megabox) Vendor() string {
	return MegaboxVendor
}

type megaboxRequest struct {
	ArrMovieNo    string `json:"arrMovieNo"`
	PlayDe        string `json:"playDe"`
	BrchNoListCnt int    `json:"brchNoListCnt"`
	BrchNo1       string `json:"brchNo1"`
	AreaCd1       string `json:"areaCd1"`
	TheabKindCd1  string `json:"theabKindCd1"`
	MovieNo1      string `json:"movieNo1"`
	SellChnlCd    string `json:"sellChnlCd"`
}

type megaboxResponse struct {
	MovieFormList []struct {
		MovieNo       flexString `json:"movieNo"`
		MovieNm       string     `json:"movieNm"`
		PlayDe        string     `json:"playDe"`
		PlayStartTime string     `json:"playStartTime"`
		TheabExpoNm   string     `json:"theabExpoNm"`
		EventDivCd    flexString `json:"eventDivCd"`
		EventDivCdNm  string     `json:"eventDivCdNm"`
		RestSeatCnt   flexString `json:"restSeatCnt"`
		TotSeatCnt    flexString `json:"totSeatCnt"`
	} `json:"movieFormList"`
	AreaBrchList []struct {
		BrchNo   flexString `json:"brchNo"`
		BrchNm   string     `json:"brchNm"`
		AreaCdNm string     `json:"areaCdNm"`
	} `json:"areaBrchList"`
}

func newMegaboxRequest(branch string, date event.Date) megaboxRequest {
	return megaboxRequest{
		PlayDe:        date.Compact(),
		BrchNoListCnt: 1,
		BrchNo1:       branch,
	}
}

func (m *Megabox) Discover(ctx context.Context) ([]Venue, error) {
	var resp megaboxResponse
	if err := m.postJSON(ctx, megaboxPath, newMegaboxRequest(megaboxSeedBranch, m.today()), &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var venues []Venue
	for _, b := range resp.AreaBrchList {
		code := b.BrchNo.String()
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		venues = append(venues, Venue{
			Vendor: MegaboxVendor,
			Region: b.AreaCdNm,
			Name:   b.BrchNm,
			Code:   code,
		})
	}

	m.logger.Debug("Venues discovered", "vendor", MegaboxVendor, "count", len(venues))
	return venues, nil
}

func (m *Megabox) Fetch(ctx context.Context, v Venue, dates []event.Date) (Raw, error) {
	if v.Code == "" {
		return Raw{}, fmt.Errorf("venue %s has no branch code", v.Name)
	}

	var raw Raw
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return raw, err
		}

		var resp megaboxResponse
		if err := m.postJSON(ctx, megaboxPath, newMegaboxRequest(v.Code, date), &resp); err != nil {
			raw.Failures = append(raw.Failures, fmt.Errorf("%s: %w", date, err))
			continue
		}

		for _, show := range resp.MovieFormList {
			playDate := date
			if d, err := event.ParseDate(show.PlayDe); err == nil {
				playDate = d
			}
			raw.Listings = append(raw.Listings, Listing{
				Title:        show.MovieNm,
				CategoryCode: show.EventDivCd.String(),
				CategoryName: show.EventDivCdNm,
				PlayDate:     playDate,
				StartTime:    show.PlayStartTime,
				Hall:         show.TheabExpoNm,

				RemainingSeats: show.RestSeatCnt.Int(),
				TotalSeats:     show.TotSeatCnt.Int(),
			})
		}
	}

	if len(dates) > 0 && len(raw.Failures) == len(dates) {
		return raw, errors.Join(raw.Failures...)
	}
	return raw, nil
}
