package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lysyi3m/screening-comb/app/event"
)

const (
	LotteVendor       = "lotte"
	LotteBaseURL      = "https://www.lottecinema.co.kr"
	lotteCinemaPath   = "/LCWS/Cinema/CinemaData.aspx"
	lotteTicketPath   = "/LCWS/Ticketing/TicketingData.aspx"
	lotteDomestic     = 1
	lotteCinemaPrefix = "1|0001|"
)

var (
	_ Source     = (*Lotte)(nil)
	_ Discoverer = (*Lotte)(nil)
)

// Lotte reads play sequences from the Lotte Cinema ticketing web service.
type Lotte struct {
	httpSource
	logger *slog.Logger
}

func NewLotte(client *http.Client, baseURL, userAgent string, logger *slog.Logger) *Lotte {
	if baseURL == "" {
		baseURL = LotteBaseURL
	}
	return &Lotte{
		httpSource: httpSource{
			client:    client,
			baseURL:   baseURL,
			userAgent: userAgent,
			referer:   LotteBaseURL + "/NLCHS/Ticketing",
		},
		logger: logger,
	}
}

func (l *Lotte) Vendor() string {
	return LotteVendor
}

type lotteParams struct {
	MethodName              string `json:"MethodName"`
	ChannelType             string `json:"channelType"`
	OSType                  string `json:"osType"`
	OSVersion               string `json:"osVersion"`
	PlayDate                string `json:"playDate,omitempty"`
	CinemaID                string `json:"cinemaID,omitempty"`
	RepresentationMovieCode string `json:"representationMovieCode"`
}

type lotteCinemaResponse struct {
	IsOK    flexString `json:"IsOK"`
	Cinemas struct {
		Items []struct {
			CinemaID       flexString `json:"CinemaID"`
			CinemaNameKR   string     `json:"CinemaNameKR"`
			DivisionCode   flexString `json:"DivisionCode"`
			CinemaAreaName string     `json:"CinemaAreaName"`
		} `json:"Items"`
	} `json:"Cinemas"`
}

type lottePlaySequenceResponse struct {
	IsOK          flexString `json:"IsOK"`
	ResultMessage string     `json:"ResultMessage"`
	PlaySeqs      struct {
		Items []lottePlaySequence `json:"Items"`
	} `json:"PlaySeqs"`
}

type lottePlaySequence struct {
	MovieCode           flexString `json:"MovieCode"`
	MovieNameKR         string     `json:"MovieNameKR"`
	PlayDt              string     `json:"PlayDt"`
	StartTime           string     `json:"StartTime"`
	ScreenNameKR        string     `json:"ScreenNameKR"`
	AccompanyTypeCode   flexString `json:"AccompanyTypeCode"`
	AccompanyTypeNameKR string     `json:"AccompanyTypeNameKR"`
	RemainSeatCount     flexString `json:"RemainSeatCount"`
	TotalSeatCount      flexString `json:"TotalSeatCount"`
}

// Discover lists domestic cinemas.
func (l *Lotte) Discover(ctx context.Context) ([]Venue, error) {
	var resp lotteCinemaResponse
	if err := l.call(ctx, lotteCinemaPath, lotteParams{MethodName: "GetCinemaItems"}, &resp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(resp.IsOK.String(), "true") {
		return nil, errors.New("cinema list request was not accepted")
	}

	var venues []Venue
	for _, c := range resp.Cinemas.Items {
		if c.DivisionCode.Int() != lotteDomestic {
			continue
		}
		venues = append(venues, Venue{
			Vendor: LotteVendor,
			Region: c.CinemaAreaName,
			Name:   strings.TrimSpace(c.CinemaNameKR),
			Code:   c.CinemaID.String(),
		})
	}

	l.logger.Debug("Venues discovered", "vendor", LotteVendor, "count", len(venues))
	return venues, nil
}

func (l *Lotte) Fetch(ctx context.Context, v Venue, dates []event.Date) (Raw, error) {
	if v.Code == "" {
		return Raw{}, fmt.Errorf("venue %s has no cinema code", v.Name)
	}

	cinemaID := v.Code
	if !strings.Contains(cinemaID, "|") {
		cinemaID = lotteCinemaPrefix + cinemaID
	}

	var raw Raw
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return raw, err
		}

		listings, err := l.fetchDate(ctx, cinemaID, date)
		if err != nil {
			raw.Failures = append(raw.Failures, fmt.Errorf("%s: %w", date, err))
			continue
		}
		raw.Listings = append(raw.Listings, listings...)
	}

	if len(dates) > 0 && len(raw.Failures) == len(dates) {
		return raw, errors.Join(raw.Failures...)
	}
	return raw, nil
}

func (l *Lotte) fetchDate(ctx context.Context, cinemaID string, date event.Date) ([]Listing, error) {
	params := lotteParams{
		MethodName: "GetPlaySequence",
		PlayDate:   date.String(),
		CinemaID:   cinemaID,
	}

	var resp lottePlaySequenceResponse
	if err := l.call(ctx, lotteTicketPath, params, &resp); err != nil {
		return nil, err
	}
	if resp.IsOK.String() != "" && !strings.EqualFold(resp.IsOK.String(), "true") {
		return nil, fmt.Errorf("play sequence request rejected: %s", resp.ResultMessage)
	}

	listings := make([]Listing, 0, len(resp.PlaySeqs.Items))
	for _, item := range resp.PlaySeqs.Items {
		playDate := date
		if item.PlayDt != "" {
			if d, err := event.ParseDate(item.PlayDt); err == nil {
				playDate = d
			}
		}
		listings = append(listings, Listing{
			Title:        item.MovieNameKR,
			CategoryCode: item.AccompanyTypeCode.String(),
			CategoryName: item.AccompanyTypeNameKR,
			PlayDate:     playDate,
			StartTime:    item.StartTime,
			Hall:         item.ScreenNameKR,

			RemainingSeats: item.RemainSeatCount.Int(),
			TotalSeats:     item.TotalSeatCount.Int(),
		})
	}
	return listings, nil
}

func (l *Lotte) call(ctx context.Context, path string, params lotteParams, out any) error {
	params.ChannelType = "HO"
	params.OSType = "Chrome"
	params.OSVersion = l.userAgent

	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode paramList: %w", err)
	}

	form := url.Values{"paramList": {string(encoded)}}
	return l.postForm(ctx, path, form.Encode(), out)
}
