package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/core/domain"
	"github.com/yndnr/fintrack-go/internal/core/service"
	"github.com/yndnr/fintrack-go/internal/infra/buildinfo"
)

// LoginCommand signs in and stores the session token.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and store the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "account email",
				EnvVars: []string{"FINTRACK_EMAIL"},
			},
			passwordFlag(),
		},
		Action: login,
	}
}

// RegisterCommand creates an account and stores the session token.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and store the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "display name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "account email",
				Required: true,
			},
			passwordFlag(),
		},
		Action: register,
	}
}

// LogoutCommand forgets the stored token.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored session token",
		Action: logout,
	}
}

// StatusCommand shows the local session state.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show server, session and credential store",
		Action: status,
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   "account password (prompted when omitted)",
		EnvVars: []string{"FINTRACK_PASSWORD"},
	}
}

func authService(c *cli.Context) (*Runtime, *service.AuthService, error) {
	rt, cl, err := client(c)
	if err != nil {
		return nil, nil, err
	}
	return rt, service.NewAuthService(cl, rt.Store), nil
}

// credential returns the flag value or asks for it.
func credential(c *cli.Context, rt *Runtime, name, prompt string) (string, error) {
	if v := c.String(name); v != "" {
		return v, nil
	}
	v, err := rt.ask(prompt)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(v), nil
}

func login(c *cli.Context) error {
	rt, auth, err := authService(c)
	if err != nil {
		return err
	}
	email, err := credential(c, rt, "email", "Email: ")
	if err != nil {
		return fail(c, "login", err)
	}
	password, err := credential(c, rt, "password", "Password: ")
	if err != nil {
		return fail(c, "login", err)
	}

	ctx, cancel := rt.requestContext(c)
	defer cancel()

	res, err := auth.Login(ctx, domain.LoginCredentials{Email: email, Password: password})
	if err != nil {
		return fail(c, "login", err)
	}
	fmt.Fprintf(c.App.Writer, "Logged in as %s\n", displayName(res, email))
	return nil
}

func register(c *cli.Context) error {
	rt, auth, err := authService(c)
	if err != nil {
		return err
	}
	password, err := credential(c, rt, "password", "Password: ")
	if err != nil {
		return fail(c, "register", err)
	}

	ctx, cancel := rt.requestContext(c)
	defer cancel()

	reg := domain.Registration{
		Name:     strings.TrimSpace(c.String("name")),
		Email:    strings.TrimSpace(c.String("email")),
		Password: password,
	}
	res, err := auth.Register(ctx, reg)
	if err != nil {
		return fail(c, "register", err)
	}
	fmt.Fprintf(c.App.Writer, "Registered and logged in as %s\n", displayName(res, reg.Email))
	return nil
}

// displayName picks the user's name from the auth response.
func displayName(res connection.AuthResult, fallback string) string {
	if user, ok := res["user"].(map[string]any); ok {
		for _, key := range []string{"name", "email"} {
			if v, ok := user[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return fallback
}

func logout(c *cli.Context) error {
	_, auth, err := authService(c)
	if err != nil {
		return err
	}
	if err := auth.Logout(); err != nil {
		return fail(c, "logout", err)
	}
	fmt.Fprintln(c.App.Writer, "Logged out")
	return nil
}

// statusInfo is rendered as a key/value table.
type statusInfo struct {
	Server        string `json:"server" yaml:"server"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Store         string `json:"store" yaml:"store"`
	StorePath     string `json:"store_path,omitempty" yaml:"store_path,omitempty"`
	Sealed        bool   `json:"sealed" yaml:"sealed"`
	Config        string `json:"config" yaml:"config"`
	Version       string `json:"version" yaml:"version"`
	Commit        string `json:"commit" yaml:"commit" table:"wide"`
	GoVersion     string `json:"go_version" yaml:"go_version" table:"wide"`
}

func status(c *cli.Context) error {
	rt, auth, err := authService(c)
	if err != nil {
		return err
	}
	st, err := auth.Status()
	if err != nil {
		return fail(c, "status", err)
	}

	cfg := rt.Config()
	sc := cfg.StoreConfig()
	info := buildinfo.Get()
	return render(c, statusInfo{
		Server:        cfg.Server,
		Authenticated: st.Authenticated,
		Store:         sc.Backend,
		StorePath:     sc.Path,
		Sealed:        cfg.Passphrase() != nil,
		Config:        rt.ConfigPath,
		Version:       info.Version,
		Commit:        info.Commit,
		GoVersion:     info.GoVersion,
	})
}
