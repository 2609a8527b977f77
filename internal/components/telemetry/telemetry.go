package telemetry

// API is what every component reports its health through, tests swap it for a MemoryAPI
// to assert that failures were reported.
type API interface {
	// ReportBroken reports a component that failed and needs attention.
	//
	// The id names the component and method that failed as `<component>.<method>`, ex. `places.geocode`
	// or `layout.extract`. It is lowercase with dashes between words (`fetcher.close-browser`) and does not
	// say how the component failed, that belongs in the params (usually the wrapped error).
	// The package of the component is already added by ScopedAPI.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not stop the component, ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information only useful while developing.
	ReportDebug(msg string, params ...any)

	// ReportCount reports how many of something there are right now, ex. the listings on a page.
	// Counts are samples over time, they should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id and message with a namespace, usually the name of the package reporting.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
