package guard

import (
	"testing"

	"github.com/deeptutor/sessiongate/router"
)

func BenchmarkEvaluate(b *testing.B) {
	paths := router.DefaultPaths()
	in := Input{Initialized: true, IsAuthenticated: false, Path: "/settings/profile"}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = Evaluate(in, paths)
	}
}

func BenchmarkGuardEvaluateRepeatedRedirect(b *testing.B) {
	g := New(router.DefaultPaths(), router.NavigatorFunc(func(string) {}))
	in := Input{Initialized: true, IsAuthenticated: true, Path: "/login"}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = g.Evaluate(in)
	}
}
