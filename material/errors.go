package material

import "errors"

var (
	// ErrParamKindMismatch is returned when a parameter is updated with a
	// value of another kind.
	ErrParamKindMismatch = errors.New("material: parameter kind mismatch")

	// ErrDuplicateMaterial is returned when a name is registered twice.
	ErrDuplicateMaterial = errors.New("material: duplicate material")

	// ErrUnknownMaterial is returned by Get for unregistered names.
	ErrUnknownMaterial = errors.New("material: unknown material")

	// ErrUnknownShader is returned when a material names a shader the store
	// has no source for.
	ErrUnknownShader = errors.New("material: unknown shader")

	// ErrWrongKind is returned when building a render pipeline from a
	// compute material or the other way round.
	ErrWrongKind = errors.New("material: wrong material kind")
)
