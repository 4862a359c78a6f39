// internal/notify/interceptor.go
package notify

// Extension points. Each is an explicit, ordered list of functions invoked
// at a named point in the dispatch pipeline; there is no open-ended event
// bus.
type (
	// ContextInterceptor may rewrite the render context before the
	// template is rendered.
	ContextInterceptor func(rc *RenderContext)

	// RenderInterceptor may rewrite the rendered subject and body.
	RenderInterceptor func(subject, body string, rc *RenderContext) (string, string)

	// RecipientInterceptor may rewrite the composed recipient sets just
	// before transmission.
	RecipientInterceptor func(rcp Recipients) Recipients
)

// Interceptors holds the registered chains for the three extension points:
// pre-render, post-render and pre-send.
type Interceptors struct {
	preRender  []ContextInterceptor
	postRender []RenderInterceptor
	preSend    []RecipientInterceptor
}

func NewInterceptors() *Interceptors { return &Interceptors{} }

func (i *Interceptors) OnPreRender(fn ContextInterceptor) {
	i.preRender = append(i.preRender, fn)
}

func (i *Interceptors) OnPostRender(fn RenderInterceptor) {
	i.postRender = append(i.postRender, fn)
}

func (i *Interceptors) OnPreSend(fn RecipientInterceptor) {
	i.preSend = append(i.preSend, fn)
}

func (i *Interceptors) applyPreRender(rc *RenderContext) {
	for _, fn := range i.preRender {
		fn(rc)
	}
}

func (i *Interceptors) applyPostRender(subject, body string, rc *RenderContext) (string, string) {
	for _, fn := range i.postRender {
		subject, body = fn(subject, body, rc)
	}
	return subject, body
}

func (i *Interceptors) applyPreSend(rcp Recipients) Recipients {
	for _, fn := range i.preSend {
		rcp = fn(rcp)
	}
	return rcp
}
