package godix

import (
	"github.com/junioryono/godix/internal/reflection"
)

// In marks a struct as a parameter object. When a constructor accepts a
// single struct with In embedded anonymously, every exported field is
// resolved as its own dependency.
//
// Fields tagged `optional:"true"` receive the zero value when the service is
// not registered. Slice fields receive every registration of the element
// type.
//
//	type ServiceParams struct {
//	    godix.In
//
//	    Database *sql.DB
//	    Logger   Logger         `optional:"true"`
//	    Handlers []http.Handler
//	}
//
//	func NewService(params ServiceParams) *Service {
//	    return &Service{db: params.Database, logger: params.Logger}
//	}
type In = reflection.In
