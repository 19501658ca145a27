package handler

import (
	"github.com/hitoshi/passdesk/internal/auth"
	"github.com/hitoshi/passdesk/internal/i18n"
	"github.com/hitoshi/passdesk/internal/idcard"
	"github.com/hitoshi/passdesk/internal/live"
	"github.com/hitoshi/passdesk/internal/passport"
	"github.com/hitoshi/passdesk/internal/photo"
	"github.com/hitoshi/passdesk/internal/user"
)

// The concrete services plug straight into RouterDeps.
var (
	_ AuthServiceInterface     = (*auth.Service)(nil)
	_ UserServiceInterface     = (*user.Service)(nil)
	_ PassportServiceInterface = (*passport.Service)(nil)
	_ SnapshotSource           = (*passport.Service)(nil)
	_ ChangeSubscriber         = (*live.Broker)(nil)
	_ CardRenderer             = (*idcard.Renderer)(nil)
	_ LanguageNegotiator       = (*i18n.Negotiator)(nil)
	_ PhotoEncoder             = (*photo.Encoder)(nil)
	_ PhotoImporter            = (*photo.Importer)(nil)
)
