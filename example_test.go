package godix_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/junioryono/godix"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }

func NewSystemClock() *SystemClock { return &SystemClock{} }

type Greeter struct {
	clock Clock
}

func NewGreeter(clock Clock) *Greeter {
	return &Greeter{clock: clock}
}

func (g *Greeter) Greeting() string {
	if g.clock.Now().Hour() < 12 {
		return "Good morning"
	}
	return "Good afternoon"
}

// Example demonstrates basic service registration and resolution.
func Example() {
	services := godix.NewCollection()

	services.AddSingleton(FixedClock{At: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}, godix.As(new(Clock)))
	services.AddScoped(NewGreeter)

	provider, err := godix.BuildAndValidate(services, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	scope, err := provider.CreateScope(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	defer scope.Close()

	greeter, err := godix.Resolve[*Greeter](scope)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(greeter.Greeting())
	// Output: Good morning
}

// ExampleCollection_DeclareExclusiveService demonstrates catching a service
// registered twice when only one is allowed.
func ExampleCollection_DeclareExclusiveService() {
	services := godix.NewCollection()
	godix.DeclareExclusiveService[Clock](services)

	services.AddSingleton(NewSystemClock, godix.As(new(Clock)))
	services.AddSingleton(FixedClock{}, godix.As(new(Clock)))

	_, err := godix.BuildAndValidate(services, nil, nil)
	fmt.Println(errors.Is(err, godix.ErrExclusivityViolation))
	fmt.Println(err)
	// Output:
	// true
	// service provider validation failed with the following errors:
	//
	// Service Clock is exclusive, but is registered 2 times.
}

// ExampleExclusiveImplementation demonstrates restricting one implementation
// while leaving others free.
func ExampleExclusiveImplementation() {
	services := godix.NewCollection()

	services.AddSingleton(NewSystemClock, godix.As(new(Clock)), godix.ExclusiveImplementation())
	services.AddSingleton(FixedClock{}, godix.As(new(Clock)))
	services.AddSingleton(FixedClock{}, godix.As(new(Clock)))

	provider, err := godix.BuildAndValidate(services, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	clocks, _ := godix.ResolveAll[Clock](provider)
	fmt.Println(len(clocks))
	// Output: 3
}

// ExampleNewModule demonstrates declaring exclusivity inside a module.
func ExampleNewModule() {
	timeModule := godix.NewModule("time",
		godix.DeclareExclusive[Clock](),
		godix.AddSingleton(NewSystemClock, godix.As(new(Clock))),
	)

	services := godix.NewCollection()
	if err := services.AddModules(timeModule, godix.AddTransient(NewGreeter)); err != nil {
		log.Fatal(err)
	}

	provider, err := godix.BuildAndValidate(services, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	_, err = godix.Resolve[*Greeter](provider)
	fmt.Println(err == nil)
	// Output: true
}

// Example_parameterObject demonstrates constructors taking a parameter object.
func Example_parameterObject() {
	type params struct {
		godix.In

		Clock   Clock
		Clocks  []Clock
		Greeter *Greeter `optional:"true"`
	}

	services := godix.NewCollection()
	services.AddSingleton(NewSystemClock, godix.As(new(Clock)))
	services.AddSingleton(FixedClock{}, godix.As(new(Clock)))
	services.AddTransient(func(p params) string {
		return fmt.Sprintf("%T of %d, greeter: %v", p.Clock, len(p.Clocks), p.Greeter != nil)
	})

	provider, err := services.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	fmt.Println(godix.MustResolve[string](provider))
	// Output: godix_test.FixedClock of 2, greeter: false
}
