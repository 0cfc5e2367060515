package samples

import (
	"errors"
	"time"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

const peopleURI = "/people"

// People is a CRUD resource over a person store. Its routes are computed
// at startup and each one is served by its own handler.
type People struct {
	store storage.PersonStore
}

// NewPeople creates the people resource.
func NewPeople(store storage.PersonStore) *People {
	return &People{store: store}
}

// Routes implements route.Dynamic. The resource is public.
func (p *People) Routes() []route.DynamicRoute {
	item := peopleURI + "/{id}"
	return []route.DynamicRoute{
		{Declaration: route.Get(peopleURI).Public(), Handler: p.list},
		{Declaration: route.Get(item).Public(), Handler: p.get},
		{Declaration: route.Post(peopleURI).Public().Bind("person", domain.Person{}), Handler: p.add},
		{Declaration: route.Put(item).Public().Bind("person", domain.Person{}), Handler: p.update},
		{Declaration: route.Delete(item).Public(), Handler: p.remove},
	}
}

func (p *People) Execute(ctx *command.Context) (*command.Result, error) {
	return route.Dispatch(ctx)
}

func (p *People) list(ctx *command.Context) (*command.Result, error) {
	people, err := p.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return command.Success(people), nil
}

func (p *People) get(ctx *command.Context) (*command.Result, error) {
	id := ctx.String("id")
	if id == "" {
		return command.Failure("ID is null on get request"), nil
	}
	person, err := p.store.GetByID(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return command.Failure("Requested person not found"), nil
	case err != nil:
		return nil, err
	}
	return command.Success(person), nil
}

func (p *People) add(ctx *command.Context) (*command.Result, error) {
	person, ok := command.Find[*domain.Person](ctx, "person")
	if !ok {
		return command.Failure("Required person object not found in input"), nil
	}
	if err := person.Validate(); err != nil {
		return command.Failure(err.Error()), nil
	}

	now := time.Now()
	person.ID = domain.NewPersonID()
	person.CreatedAt = now
	person.UpdatedAt = now
	if err := p.store.Create(ctx, person); err != nil {
		return nil, err
	}
	return command.Success(person), nil
}

func (p *People) update(ctx *command.Context) (*command.Result, error) {
	existing, err := p.store.GetByID(ctx, ctx.String("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return command.Failure("Requested to update non-existing person"), nil
	case err != nil:
		return nil, err
	}

	person, ok := command.Find[*domain.Person](ctx, "person")
	if !ok {
		return command.Failure("Required person object not found in input"), nil
	}
	if err := person.Validate(); err != nil {
		return command.Failure(err.Error()), nil
	}

	existing.Apply(person)
	existing.UpdatedAt = time.Now()
	if err := p.store.Update(ctx, existing); err != nil {
		return nil, err
	}
	return command.Success(nil), nil
}

func (p *People) remove(ctx *command.Context) (*command.Result, error) {
	err := p.store.Delete(ctx, ctx.String("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return command.Failure("Requested to delete non-existing person"), nil
	case err != nil:
		return nil, err
	}
	return command.Success(nil), nil
}
