package sessiongate_test

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/deeptutor/sessiongate"
	"github.com/deeptutor/sessiongate/form"
)

// ExampleNew builds a gate that keeps its token in Redis.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := sessiongate.DefaultConfig()
	cfg.Storage.Kind = sessiongate.StorageRedis
	cfg.Storage.Instance = "laptop"

	gate, err := sessiongate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		return
	}
	defer gate.Close()
	_ = gate.Start(context.Background())
}

// ExampleGate_NewForm signs in through the credential form.
func ExampleGate_NewForm() {
	var gate *sessiongate.Gate
	f := gate.NewForm()
	f.SetUsername("admin")
	f.SetPassword("admin")
	if f.Submit(context.Background()) != form.OutcomeSignedIn {
		fmt.Println(f.View().Error)
	}
}

// ExampleGate_Open shows what the guard decides for a path.
func ExampleGate_Open() {
	var gate *sessiongate.Gate
	d, err := gate.Open("/settings")
	if err != nil {
		return
	}
	fmt.Println(d.State, d.RedirectTo)
}

// ExampleGate_MetricsSnapshot reads the in-process counters.
func ExampleGate_MetricsSnapshot() {
	var gate *sessiongate.Gate
	snapshot := gate.MetricsSnapshot()
	fmt.Println(snapshot.Counters[sessiongate.MetricSignInFailure])
}
