package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"StockCharts/internal/calculator"
	"StockCharts/internal/charts"
	"StockCharts/internal/export"
	"StockCharts/internal/model"
	"StockCharts/internal/store"
)

const pageTemplate = "charts.html"

type barView struct {
	DT           string
	Open         string
	High         string
	Low          string
	Close        string
	Volume       int64
	VWAP         string
	Transactions int64
}

type summaryView struct {
	Count     int
	First     string
	Last      string
	High      string
	Low       string
	Change    string
	ChangePct string
	Volume    int64
	SMA       string
	SMAPeriod int
	RSI       string
	RSIPeriod int
	RangePos  string
}

type pageData struct {
	Form      formValues
	Errors    FieldErrors
	Symbols   []string
	Timespans []string
	Submitted bool
	Series    charts.Series
	Bars      []barView
	Summary   *summaryView
	ExportURL string
}

func (s *Server) page(values formValues, errs FieldErrors) pageData {
	return pageData{
		Form:      values,
		Errors:    errs,
		Symbols:   s.cfg.Charts.Symbols,
		Timespans: s.cfg.Charts.Timespans,
	}
}

// handleForm renders the empty form with defaults.
func (s *Server) handleForm(c *gin.Context) {
	c.HTML(http.StatusOK, pageTemplate, s.page(defaultValues(), nil))
}

// handleCharts validates the form, fetches and stores the requested bars, then renders them.
func (s *Server) handleCharts(c *gin.Context) {
	req, values, errs := bindForm(c, s.cfg)
	if errs != nil {
		c.HTML(http.StatusBadRequest, pageTemplate, s.page(values, errs))
		return
	}
	ctx := c.Request.Context()

	series, _, err := s.svc.Ingest(ctx, s.fetcher, req.aggregates())
	if err != nil {
		var se *charts.StatusError
		switch {
		case errors.As(err, &se):
			s.log.Warn("upstream returned error status", "symbol", req.Symbol, "status", se.StatusCode)
			c.String(http.StatusBadGateway, se.Error())
		case errors.Is(err, charts.ErrUpstream):
			s.log.Error("upstream call failed", "symbol", req.Symbol, "err", err)
			c.String(http.StatusBadGateway, "Error calling Polygon.io: %v", err)
		default:
			s.log.Error("ingest failed", "symbol", req.Symbol, "err", err)
			c.String(http.StatusInternalServerError, err.Error())
		}
		return
	}

	bars, err := s.svc.Query(ctx, series, req.From, req.To, req.Limit)
	if err != nil {
		s.log.Error("query failed", "symbol", series.Symbol, "err", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	data := s.page(values, nil)
	data.Submitted = true
	data.Series = series
	data.Bars = s.barViews(bars)
	data.ExportURL = exportURL(series, values)
	if len(bars) > 0 {
		sum, err := calculator.Summarize(bars)
		if err != nil {
			s.log.Warn("summary failed", "symbol", series.Symbol, "err", err)
		} else {
			data.Summary = s.summaryView(sum)
		}
	}
	c.HTML(http.StatusOK, pageTemplate, data)
}

// handleExport encodes stored bars for the requested range without calling upstream.
func (s *Server) handleExport(c *gin.Context) {
	enc, err := export.NewEncoder(c.Query("format"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	req, _, errs := bindForm(c, s.cfg)
	if errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	series := charts.Series{Symbol: req.Symbol, Timespan: req.Timespan, Multiplier: req.Multiplier}
	bars, err := s.svc.Query(c.Request.Context(), series, req.From, req.To, req.Limit)
	if err != nil {
		if errors.Is(err, store.ErrTickerNotFound) {
			c.String(http.StatusNotFound, err.Error())
			return
		}
		s.log.Error("export query failed", "symbol", req.Symbol, "err", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, bars); err != nil {
		s.log.Error("export encode failed", "format", enc.Extension(), "err", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	name := export.Filename(series.Symbol, series.Timespan, series.Multiplier,
		c.Query("from_date"), c.Query("to_date"), enc.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, enc.ContentType(), buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Error("health check failed", "err", err)
		c.String(http.StatusServiceUnavailable, "store unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}

func exportURL(series charts.Series, values formValues) string {
	q := url.Values{
		"symbol":              {series.Symbol},
		"timespan":            {string(series.Timespan)},
		"timespan_multiplier": {strconv.Itoa(series.Multiplier)},
		"from_date":           {values.FromDate},
		"to_date":             {values.ToDate},
		"limit":               {values.Limit},
	}
	return "/charts/export?" + q.Encode()
}

func (s *Server) barViews(bars []model.Bar) []barView {
	loc := s.svc.Location()
	views := make([]barView, len(bars))
	for i, b := range bars {
		views[i] = barView{
			DT:           b.DT(loc),
			Open:         b.Open.StringFixed(model.PriceDecimals),
			High:         b.High.StringFixed(model.PriceDecimals),
			Low:          b.Low.StringFixed(model.PriceDecimals),
			Close:        b.Close.StringFixed(model.PriceDecimals),
			Volume:       b.Volume,
			VWAP:         b.VWAP.StringFixed(model.PriceDecimals),
			Transactions: b.Transactions,
		}
	}
	return views
}

func (s *Server) summaryView(sum *calculator.Summary) *summaryView {
	loc := s.svc.Location()
	v := &summaryView{
		Count:     sum.Count,
		First:     model.Bar{Timestamp: sum.FirstMs}.DT(loc),
		Last:      model.Bar{Timestamp: sum.LastMs}.DT(loc),
		High:      sum.High.StringFixed(model.PriceDecimals),
		Low:       sum.Low.StringFixed(model.PriceDecimals),
		Change:    sum.Change.StringFixed(model.PriceDecimals),
		ChangePct: sum.ChangePct.StringFixed(2),
		Volume:    sum.Volume,
		SMAPeriod: sum.SMAPeriod,
		RSI:       strconv.FormatFloat(sum.RSI, 'f', 1, 64),
		RSIPeriod: sum.RSIPeriod,
		RangePos:  strconv.FormatFloat(sum.RangePos*100, 'f', 0, 64),
	}
	if sum.HasSMA {
		v.SMA = sum.SMA.StringFixed(model.PriceDecimals)
	}
	return v
}
