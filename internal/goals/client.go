package goals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/KPI_GO/internal/cells"
	"github.com/AngelCh415/KPI_GO/internal/models"
)

var ErrNotConfigured = errors.New("goal store not configured")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// Client talks to the spreadsheet-backed goal endpoint.
type Client struct {
	c       HTTPClient
	getURL  string
	postURL string
	apiKey  string
}

func NewClient(c HTTPClient, getURL, postURL, apiKey string) *Client {
	return &Client{c: c, getURL: getURL, postURL: postURL, apiKey: apiKey}
}

// number acepta número, string con formato local o null (-> 0)
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = number(cells.CoerceNumber(str))
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

type wireGoal struct {
	Comercial   string `json:"comercial"`
	MetaAnual   number `json:"metaAnual"`
	MetaOfertas number `json:"metaOfertas"`
	MetaVisitas number `json:"metaVisitas"`
}

type getResponse struct {
	Year  number     `json:"year"`
	Metas []wireGoal `json:"metas"`
}

type postRequest struct {
	APIKey string              `json:"apiKey"`
	Year   int                 `json:"year"`
	Metas  []models.GoalRecord `json:"metas"`
}

type postResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Fetch GETs <getURL>?year=Y. Missing or null numbers become 0 and names
// are trimmed with inner whitespace collapsed.
func (c *Client) Fetch(ctx context.Context, year int) ([]models.GoalRecord, error) {
	if c.getURL == "" {
		return nil, ErrNotConfigured
	}
	u, err := withYear(c.getURL, year)
	if err != nil {
		return nil, err
	}
	var resp getResponse
	if err := getJSON(ctx, c.c, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch goals %d: %w", year, err)
	}
	out := make([]models.GoalRecord, 0, len(resp.Metas))
	for _, m := range resp.Metas {
		name := strings.Join(strings.Fields(m.Comercial), " ")
		if name == "" {
			continue
		}
		out = append(out, models.GoalRecord{
			Salesperson:        name,
			Year:               year,
			AnnualTarget:       float64(m.MetaAnual),
			MonthlyOfferTarget: float64(m.MetaOfertas),
			MonthlyVisitTarget: float64(m.MetaVisitas),
		})
	}
	return out, nil
}

// Save POSTs {apiKey, year, metas}. A non-2xx status or ok=false is an error.
func (c *Client) Save(ctx context.Context, year int, recs []models.GoalRecord) error {
	if c.postURL == "" {
		return ErrNotConfigured
	}
	if recs == nil {
		recs = []models.GoalRecord{}
	}
	b, err := json.Marshal(postRequest{APIKey: c.apiKey, Year: year, Metas: recs})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("save goals %d: %w", year, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("save goals %d: non-2xx: %d body=%s", year, resp.StatusCode, string(body))
	}
	var out postResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("save goals %d: decode: %w", year, err)
	}
	if !out.OK {
		msg := out.Error
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("save goals %d: %s", year, msg)
	}
	return nil
}

func withYear(raw string, year int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("goals url: %w", err)
	}
	q := u.Query()
	q.Set("year", strconv.Itoa(year))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func getJSON(ctx context.Context, c HTTPClient, url string, v any) error {
	if url == "" {
		return errors.New("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(v)
}
