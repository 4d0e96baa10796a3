package web

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"StockCharts/internal/collector"
	"StockCharts/internal/config"
	"StockCharts/internal/model"
)

const (
	defaultTimespan   = model.TimespanMinute
	defaultMultiplier = 1
	defaultLimit      = 120
)

// SymbolSelectionForm is the chart request form. Field names match the HTML inputs.
type SymbolSelectionForm struct {
	Symbol     string `form:"symbol" binding:"required"`
	Timespan   string `form:"timespan" binding:"required"`
	Multiplier int    `form:"timespan_multiplier" binding:"required,min=1"`
	FromDate   string `form:"from_date" binding:"required,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"required,datetime=2006-01-02"`
	Limit      int    `form:"limit" binding:"required,min=1,max=50000"`
}

// formValues is what the template echoes back into the inputs.
type formValues struct {
	Symbol     string
	Timespan   string
	Multiplier string
	FromDate   string
	ToDate     string
	Limit      string
}

func defaultValues() formValues {
	return formValues{
		Timespan:   string(defaultTimespan),
		Multiplier: strconv.Itoa(defaultMultiplier),
		Limit:      strconv.Itoa(defaultLimit),
	}
}

// FieldErrors maps an input name to its message.
type FieldErrors map[string]string

var fieldInputs = map[string]string{
	"Symbol":     "symbol",
	"Timespan":   "timespan",
	"Multiplier": "timespan_multiplier",
	"FromDate":   "from_date",
	"ToDate":     "to_date",
	"Limit":      "limit",
}

var intInputs = []string{"timespan_multiplier", "limit"}

// chartRequest is a validated form.
type chartRequest struct {
	Symbol     string
	Timespan   model.Timespan
	Multiplier int
	From       time.Time
	To         time.Time
	Limit      int
}

func (r chartRequest) aggregates() collector.AggregatesRequest {
	return collector.AggregatesRequest{
		Ticker:     r.Symbol,
		Timespan:   r.Timespan,
		Multiplier: r.Multiplier,
		From:       r.From,
		To:         r.To,
		Limit:      r.Limit,
	}
}

// bindForm binds and validates the request form against the configured choices.
// Raw submitted values are returned for re-rendering either way.
func bindForm(c *gin.Context, cfg *config.Config) (chartRequest, formValues, FieldErrors) {
	raw := formValues{
		Symbol:     inputValue(c, "symbol"),
		Timespan:   inputValue(c, "timespan"),
		Multiplier: inputValue(c, "timespan_multiplier"),
		FromDate:   inputValue(c, "from_date"),
		ToDate:     inputValue(c, "to_date"),
		Limit:      inputValue(c, "limit"),
	}

	errs := FieldErrors{}
	for _, name := range intInputs {
		v := inputValue(c, name)
		if v == "" {
			continue
		}
		if _, err := strconv.Atoi(v); err != nil {
			errs[name] = "Enter a whole number."
		}
	}
	if len(errs) > 0 {
		return chartRequest{}, raw, errs
	}

	var form SymbolSelectionForm
	if err := c.ShouldBind(&form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["form"] = err.Error()
			return chartRequest{}, raw, errs
		}
		for _, fe := range verrs {
			errs[fieldInputs[fe.Field()]] = fieldMessage(fe)
		}
	}

	if _, ok := errs["symbol"]; !ok && !cfg.HasSymbol(form.Symbol) {
		errs["symbol"] = invalidChoice(form.Symbol)
	}
	if _, ok := errs["timespan"]; !ok && !cfg.HasTimespan(form.Timespan) {
		errs["timespan"] = invalidChoice(form.Timespan)
	}

	req := chartRequest{Symbol: form.Symbol, Multiplier: form.Multiplier, Limit: form.Limit}
	req.Timespan, _ = model.ParseTimespan(form.Timespan)

	loc := cfg.Location()
	var fromErr, toErr error
	if _, ok := errs["from_date"]; !ok {
		req.From, fromErr = time.ParseInLocation(collector.DateLayout, form.FromDate, loc)
		if fromErr != nil {
			errs["from_date"] = "Enter a valid date."
		}
	}
	if _, ok := errs["to_date"]; !ok {
		req.To, toErr = time.ParseInLocation(collector.DateLayout, form.ToDate, loc)
		if toErr != nil {
			errs["to_date"] = "Enter a valid date."
		}
	}
	_, fromBad := errs["from_date"]
	_, toBad := errs["to_date"]
	if !fromBad && !toBad && req.To.Before(req.From) {
		errs["to_date"] = "End date must not be before start date."
	}

	if len(errs) > 0 {
		return chartRequest{}, raw, errs
	}
	return req, raw, nil
}

func inputValue(c *gin.Context, name string) string {
	if c.Request.Method == "GET" {
		return c.Query(name)
	}
	return c.PostForm(name)
}

func invalidChoice(v string) string {
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "datetime":
		return "Enter a valid date."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
