package flows

import "context"

// Deps is every flow's wiring, assembled by the engine at build time.
type Deps struct {
	Register     RegisterDeps
	Login        LoginDeps
	Refresh      RefreshDeps
	Logout       LogoutDeps
	Profile      ProfileDeps
	Authenticate AuthenticateDeps
}

// Missing names the required callbacks that are still nil.
func (d Deps) Missing() []string {
	var missing []string
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check(d.Register.InsertUser != nil, "Register.InsertUser")
	check(d.Login.FindByEmail != nil, "Login.FindByEmail")
	check(d.Login.StartSession != nil, "Login.StartSession")
	check(d.Refresh.Rotate != nil, "Refresh.Rotate")
	check(d.Logout.Revoke != nil, "Logout.Revoke")
	check(d.Profile.FindByID != nil, "Profile.FindByID")
	check(d.Authenticate.VerifyAccess != nil, "Authenticate.VerifyAccess")
	return missing
}

// Service dispatches engine calls to the flow functions. The zero Service
// is not ready.
type Service struct {
	deps  Deps
	ready bool
}

func New(deps Deps) Service {
	return Service{deps: deps, ready: len(deps.Missing()) == 0}
}

func (s Service) Initialized() bool { return s.ready }

func (s Service) Register(ctx context.Context, req RegisterRequest) RegisterResult {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, userID, accessToken string) LogoutResult {
	return RunLogout(ctx, userID, accessToken, s.deps.Logout)
}

func (s Service) Profile(ctx context.Context, userID string) ProfileResult {
	return RunProfile(ctx, userID, s.deps.Profile)
}

func (s Service) Authenticate(ctx context.Context, accessToken string) AuthenticateResult {
	return RunAuthenticate(ctx, accessToken, s.deps.Authenticate)
}
