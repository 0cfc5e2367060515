package samples

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
)

// HelloWorld echoes the path parameters with the time of execution.
type HelloWorld struct{}

func (HelloWorld) Declaration() route.Declaration {
	return route.Get("/hello/world/{last}/{first}").Public()
}

func (HelloWorld) Execute(ctx *command.Context) (*command.Result, error) {
	return command.Success(map[string]any{
		"first_name":     ctx.String("first"),
		"last_name":      ctx.String("last"),
		"execution_time": time.Now(),
	}), nil
}

// HelloWorld2 combines path parameters, an optional query parameter and
// the caller's identity.
type HelloWorld2 struct{}

func (HelloWorld2) Declaration() route.Declaration {
	return route.Get("/hello/world2/{last}/{first}").Public()
}

func (HelloWorld2) Execute(ctx *command.Context) (*command.Result, error) {
	first := ctx.String("first")
	if first == "" {
		return nil, command.Invalid("Required path param=firstName not found")
	}
	last := ctx.String("last")
	if last == "" {
		return nil, command.Invalid("Required path param=lastName not found")
	}

	data := map[string]string{
		"first_name":  first,
		"last_name":   last,
		"middle_name": "Not Available",
		"user_email":  "Not authenticated",
	}
	if middle := ctx.String("mname"); middle != "" {
		data["middle_name"] = middle
	}
	if p, ok := auth.PrincipalFrom(ctx); ok {
		data["user_email"] = p.Email
	}
	return command.Success(data), nil
}

// SampleDate accepts timestamps with or without a zone offset.
type SampleDate struct {
	time.Time
}

const sampleDateLayout = "2006-01-02T15:04:05"

func (d *SampleDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(sampleDateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d SampleDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(sampleDateLayout))
}

// SampleInput is the body accepted by HelloWorld3.
//
//	{"inputText": "foobar", "inputNumber": 22, "inputDate": "2015-01-06T20:23:38"}
type SampleInput struct {
	InputText   string     `json:"inputText"`
	InputNumber int        `json:"inputNumber"`
	InputDate   SampleDate `json:"inputDate"`
}

// SampleOutput is returned by HelloWorld3. Month is zero based and
// DayOfWeek counts from Sunday = 1.
type SampleOutput struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Month     int    `json:"month"`
	DayOfWeek int    `json:"dayOfWeek"`
	Count     int    `json:"count"`
}

// HelloWorld3 transforms a posted SampleInput.
type HelloWorld3 struct{}

func (HelloWorld3) Declaration() route.Declaration {
	return route.Post("/hello/world3/{id}").Public().Bind("inputData", SampleInput{})
}

func (HelloWorld3) Execute(ctx *command.Context) (*command.Result, error) {
	input, ok := command.Find[*SampleInput](ctx, "inputData")
	if !ok {
		return command.Failure("No inputs were detected"), nil
	}

	return command.Success(SampleOutput{
		ID:        ctx.String("id"),
		Text:      strings.ToUpper(input.InputText),
		Month:     int(input.InputDate.Month()) - 1,
		DayOfWeek: int(input.InputDate.Weekday()) + 1,
		Count:     input.InputNumber + 1,
	}), nil
}
