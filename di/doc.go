// Package di provides a dependency injection container for gokit applications.
//
// It supports eager, lazy, and singleton registration modes with type-safe
// resolution using Go generics. The container enables decoupled architecture
// by managing service dependencies and their lifecycle.
//
// # Registration
//
//	container.Register("my-service", func() (*MyService, error) {
//	    return NewMyService(), nil
//	})
//
// # Resolution
//
//	svc := di.MustResolve[*MyService](container, "my-service")
package di
