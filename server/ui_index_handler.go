package server

import (
	"net/http"

	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/card"
)

type indexPageData struct {
	layoutData
	PreviewNumber string
	Destination   string
}

// IndexHandler renders the landing page with a freshly generated card preview
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.manager(w, r)
		s.render(w, r, http.StatusOK, pageIndex, indexPageData{
			layoutData:    s.layout(r, m),
			PreviewNumber: card.PreviewNumber(nil),
			Destination:   auth.DestinationFor(m),
		})
	}
}
