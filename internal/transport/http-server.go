package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/snipstash/snipstash-back/internal/apperror"
	"github.com/snipstash/snipstash-back/internal/auth"
	"github.com/snipstash/snipstash-back/internal/config"
	"github.com/snipstash/snipstash-back/internal/service"
)

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		resolver *auth.Resolver
		auth     *service.Auth
		snippets *service.Snippets
		folders  *service.Folders
		search   *service.Search
		tags     *service.Tags
		logger   *zap.SugaredLogger
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	resolver *auth.Resolver,
	authSvc *service.Auth,
	snippets *service.Snippets,
	folders *service.Folders,
	search *service.Search,
	tags *service.Tags,
	logger *zap.SugaredLogger,
) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		resolver: resolver,
		auth:     authSvc,
		snippets: snippets,
		folders:  folders,
		search:   search,
		tags:     tags,
		logger:   logger,
	}

	authG := e.Group("/auth")
	authG.POST("/register", instance.Register)
	authG.POST("/login", instance.Login)
	authG.GET("/me", instance.Me)
	authG.POST("/verify/request", instance.RequestVerification)
	authG.POST("/verify", instance.VerifyEmail)

	snippetG := e.Group("/snippet")
	snippetG.POST("/list", instance.SnippetList)
	snippetG.POST("", instance.SnippetCreate)
	snippetG.GET("/:id", instance.SnippetGet)
	snippetG.PATCH("/:id", instance.SnippetUpdate)
	snippetG.DELETE("/:id", instance.SnippetDelete)
	snippetG.POST("/:id/use", instance.SnippetUse)
	snippetG.PUT("/:id/folders", instance.SnippetFolders)

	folderG := e.Group("/folder")
	folderG.GET("", instance.FolderList)
	folderG.POST("", instance.FolderCreate)
	folderG.GET("/:id", instance.FolderGet)
	folderG.PATCH("/:id", instance.FolderUpdate)
	folderG.DELETE("/:id", instance.FolderDelete)

	tagG := e.Group("/tag")
	tagG.GET("", instance.TagList)
	tagG.GET("/most-used", instance.TagMostUsed)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(instance.RequestLogMiddleware)
	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = instance.ErrorHandler

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

// ErrorHandler maps the failure taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 with a generic body.
func (s *HTTPServer) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, map[string]interface{}{"message": httpErr.Message})
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperror.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperror.ErrInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrUnauthorized),
		errors.Is(err, apperror.ErrInvalidCredential),
		errors.Is(err, apperror.ErrExpired):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, apperror.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	default:
		s.logger.Errorw("request failed", "path", c.Path(), "error", err)
	}

	_ = c.JSON(status, map[string]string{"message": message})
}

func (s *HTTPServer) Register(c echo.Context) error {
	req := RegisterReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := s.auth.Register(req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, AuthResp{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	})
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := LoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AuthResp{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	})
}

func (s *HTTPServer) Me(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	user, err := s.auth.Me(identity.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UserResp{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Verified: user.EmailVerified,
	})
}

func (s *HTTPServer) RequestVerification(c echo.Context) error {
	req := VerifyRequestReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.auth.RequestVerification(req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *HTTPServer) VerifyEmail(c echo.Context) error {
	req := VerifyReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.auth.VerifyEmail(req.Email, req.Code); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *HTTPServer) SnippetList(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	req := SnippetListReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	items, total, err := s.search.Search(identity.ID, service.SearchQuery{
		Text:     req.Query,
		Tags:     req.Tags,
		Language: req.Language,
		FolderID: req.FolderID,
		Page:     req.Page,
		PageSize: req.PageSize,
		Sort:     service.SortKey(req.Sort),
	})
	if err != nil {
		return err
	}

	resp := SnippetPageResp{
		Items: make([]SnippetResp, len(items)),
		Total: total,
		Page:  req.Page,
	}
	for i := range items {
		resp.Items[i] = toSnippetResp(&items[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) SnippetCreate(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	req := SnippetReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	snippet, err := s.snippets.Create(identity.ID, service.CreateSnippetInput{
		Title:       req.Title,
		Content:     req.Content,
		Language:    req.Language,
		Description: req.Description,
		Tags:        req.Tags,
		FolderIDs:   req.FolderIDs,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toSnippetResp(snippet))
}

func (s *HTTPServer) SnippetGet(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	snippet, err := s.snippets.Get(identity.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnippetResp(snippet))
}

func (s *HTTPServer) SnippetUpdate(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := SnippetPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	snippet, err := s.snippets.Update(identity.ID, id, service.UpdateSnippetInput{
		Title:       req.Title,
		Content:     req.Content,
		Language:    req.Language,
		Description: req.Description,
		Tags:        req.Tags,
		FolderIDs:   req.FolderIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnippetResp(snippet))
}

func (s *HTTPServer) SnippetDelete(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.snippets.Delete(identity.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) SnippetUse(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := SnippetUseReq{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snippet, err := s.snippets.RecordUsage(identity.ID, id, req.Action)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnippetResp(snippet))
}

func (s *HTTPServer) SnippetFolders(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := SnippetFoldersReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	snippet, err := s.snippets.AttachFolders(identity.ID, id, req.FolderIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnippetResp(snippet))
}

func (s *HTTPServer) FolderList(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	folders, err := s.folders.List(identity.ID)
	if err != nil {
		return err
	}

	resp := make([]FolderResp, len(folders))
	for i := range folders {
		resp[i] = toFolderResp(&folders[i], false)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderCreate(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	req := FolderReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	folder, err := s.folders.Create(identity.ID, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toFolderResp(folder, false))
}

func (s *HTTPServer) FolderGet(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	folder, err := s.folders.GetWithSnippets(identity.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFolderResp(folder, true))
}

func (s *HTTPServer) FolderUpdate(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := FolderPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	folder, err := s.folders.Update(identity.ID, id, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFolderResp(folder, false))
}

func (s *HTTPServer) FolderDelete(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.folders.Delete(identity.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) TagList(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	tags, err := s.tags.ListForUser(identity.ID)
	if err != nil {
		return err
	}

	resp := make([]TagResp, len(tags))
	for i := range tags {
		resp[i] = TagResp{ID: tags[i].ID, Name: tags[i].Name}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagMostUsed(c echo.Context) error {
	identity, err := GetIdentity(c)
	if err != nil {
		return err
	}

	counts, err := s.tags.MostUsed(identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}

// AuthMiddleware resolves the Bearer credential into an identity and stashes
// it in the request context. Registration, login, verification, and ping stay
// public.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Path() {
		case "/auth/register", "/auth/login", "/auth/verify/request", "/auth/verify", "/ping":
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		credential := ""
		if strings.HasPrefix(header, "Bearer ") {
			credential = strings.TrimPrefix(header, "Bearer ")
		}

		identity, err := s.resolver.Resolve(credential)
		if err != nil {
			return err
		}

		c.Set("identity", identity)
		return next(c)
	}
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetIdentity(c echo.Context) (*auth.Identity, error) {
	identity, ok := c.Get("identity").(*auth.Identity)
	if !ok || identity == nil {
		return nil, apperror.Unauthorized("no identity in request context")
	}
	return identity, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return vv, nil
}
