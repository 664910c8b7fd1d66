package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/lysyi3m/screening-comb/app/event"
)

const (
	CGVVendor = "cgv"
	CGVURL    = "https://cgv.co.kr/cnm/movieBook"

	cgvSettle        = 1500 * time.Millisecond
	cgvMaxArrowPages = 10
)

var _ Source = (*CGV)(nil)

// CGV drives a headless browser through the booking page. The site has no
// public schedule API, so each requested day is read as rendered text.
type CGV struct {
	url       string
	headless  bool
	userAgent string
	settle    time.Duration
	logger    *slog.Logger
}

func NewCGV(headless bool, userAgent string, logger *slog.Logger) *CGV {
	return &CGV{
		url:       CGVURL,
		headless:  headless,
		userAgent: userAgent,
		settle:    cgvSettle,
		logger:    logger,
	}
}

func (c *CGV) Vendor() string {
	return CGVVendor
}

func (c *CGV) Fetch(ctx context.Context, v Venue, dates []event.Date) (Raw, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.UserAgent(c.userAgent),
		chromedp.WindowSize(1280, 2000),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx, c.selectTheater(v)); err != nil {
		return Raw{}, fmt.Errorf("failed to select theater: %w", err)
	}

	var raw Raw
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return raw, err
		}

		weekday := KoreanWeekday(date.Weekday())
		text, err := c.readDay(browserCtx, weekday, date.Day)
		if err != nil {
			raw.Failures = append(raw.Failures, fmt.Errorf("%s(%s): %w", date, weekday, err))
			continue
		}

		raw.Pages = append(raw.Pages, Page{Day: date.Day, Weekday: weekday, Text: text})
	}

	c.logger.Debug("Theater pages read", "venue", v.DisplayName(), "pages", len(raw.Pages), "failures", len(raw.Failures))

	if len(dates) > 0 && len(raw.Failures) == len(dates) {
		return raw, errors.Join(raw.Failures...)
	}
	return raw, nil
}

func (c *CGV) selectTheater(v Venue) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate(c.url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(c.settle),
		clickScript(clickExactScript("극장을 선택해 주세요")),
		chromedp.Sleep(c.settle / 3),
		clickScript(clickRegionScript(v.Region)),
		chromedp.Sleep(c.settle / 3),
		clickScript(clickExactScript(v.Name)),
		chromedp.Sleep(c.settle / 3),
		clickScript(clickExactScript("극장선택")),
		chromedp.Sleep(c.settle),
	}
}

func (c *CGV) readDay(ctx context.Context, weekday string, day int) (string, error) {
	clicked := false
	for page := 0; page <= cgvMaxArrowPages && !clicked; page++ {
		if err := chromedp.Run(ctx, chromedp.Evaluate(dayTabScript(weekday, day), &clicked)); err != nil {
			return "", err
		}
		if clicked {
			break
		}

		var advanced bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(nextArrowScript, &advanced)); err != nil {
			return "", err
		}
		if !advanced {
			break
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(c.settle/3)); err != nil {
			return "", err
		}
	}
	if !clicked {
		return "", errors.New("date tab not found or disabled")
	}

	var text string
	err := chromedp.Run(ctx,
		chromedp.Sleep(c.settle),
		chromedp.Evaluate(`window.scrollTo(0, 0); document.body.innerText`, &text),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

// clickScript runs a script that must return true once it clicked something.
func clickScript(script string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var ok bool
		if err := chromedp.Evaluate(script, &ok).Do(ctx); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("element not found: %s", script)
		}
		return nil
	})
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func clickExactScript(label string) string {
	return fmt.Sprintf(`(() => {
	const want = %s;
	for (const el of document.querySelectorAll('button, a, li, div, span')) {
		if ((el.innerText || '').trim() === want) { el.click(); return true; }
	}
	return false;
})()`, jsString(label))
}

// Region buttons read like "서울(32)".
func clickRegionScript(region string) string {
	return fmt.Sprintf(`(() => {
	const want = %s;
	for (const el of document.querySelectorAll('button, a, li, span')) {
		const text = (el.innerText || '').trim();
		if (text.startsWith(want + '(') && /\(\d+\)$/.test(text)) { el.click(); return true; }
	}
	return false;
})()`, jsString(region))
}

// Date tabs render as the weekday above the day number, e.g. "토\n15".
func dayTabScript(weekday string, day int) string {
	return fmt.Sprintf(`(() => {
	const labels = [%s + '\n' + %s, %s + '\n' + %s];
	for (const el of document.querySelectorAll('li, button, a, div, span')) {
		const text = (el.innerText || '').trim();
		if (!labels.includes(text)) continue;
		let node = el;
		for (let i = 0; i < 4 && node; i++, node = node.parentElement) {
			if (node.disabled || String(node.className).includes('disabled')) return false;
		}
		el.scrollIntoView({block: 'center', inline: 'center'});
		el.click();
		return true;
	}
	return false;
})()`, jsString(weekday), jsString(fmt.Sprintf("%02d", day)), jsString(weekday), jsString(fmt.Sprint(day)))
}

const nextArrowScript = `(() => {
	for (const el of document.querySelectorAll('button, a')) {
		const label = (el.getAttribute('aria-label') || el.innerText || '').trim();
		if (/다음|next/i.test(label) && !el.disabled) { el.click(); return true; }
	}
	return false;
})()`
