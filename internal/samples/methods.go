package samples

import (
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
)

// Rate is the body accepted by the POST entry point of MethodRoutes.
type Rate struct {
	Text string  `json:"text"`
	Rate float64 `json:"rate"`
}

// MethodRoutes exposes several entry points under /methods. The
// class-level route is authenticated, so each entry is protected unless it
// opts out.
type MethodRoutes struct{}

func (MethodRoutes) Declaration() route.Declaration {
	return route.Declaration{URI: "/methods"}
}

func (m MethodRoutes) MethodRoutes() []route.MethodRoute {
	return []route.MethodRoute{
		{Declaration: route.Get("/get").Public(), Handler: m.get},
		{Declaration: route.Get("/getWithAuth"), Handler: m.get},
		{Declaration: route.Post("/post/{last}/{first}").Public().Bind("inputData", Rate{}), Handler: m.post},
	}
}

func (MethodRoutes) Execute(ctx *command.Context) (*command.Result, error) {
	return route.Dispatch(ctx)
}

func (MethodRoutes) get(*command.Context) (*command.Result, error) {
	return command.Success(map[string]string{"Hello": "World"}).WithMessage("GET"), nil
}

func (MethodRoutes) post(ctx *command.Context) (*command.Result, error) {
	in, ok := command.Find[*Rate](ctx, "inputData")
	if !ok {
		return nil, command.Invalid("Required rate object not found in input")
	}
	out := Rate{Text: "MethodRoutes", Rate: in.Rate + 1}
	return command.Success(out).WithMessage("POST_METHOD" + in.Text), nil
}
