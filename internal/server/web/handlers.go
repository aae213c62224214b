package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/gin-gonic/gin"
)

// User-visible messages.
const (
	msgNotFound        = "Audio translation not found"
	msgNoFile          = "No selected file"
	msgBadType         = "Only the following file formats are accepted: .mp3, .m4a, .wav, .ogg, .flac"
	msgEmptyFile       = "The selected file is empty"
	msgTooLarge        = "The selected file is too large"
	msgUnreadableAudio = "The audio could not be recognized. Please try another recording."
	msgProcessing      = "Processing failed. Please try again later."
	msgLoginFailed     = "Login unsuccessful. Please check username and password."
	msgLoginBlank      = "Please provide both a username and password"
	msgDuplicate       = "Username already exists. Please choose a different one."
	msgMismatch        = "Passwords do not match"
	msgInternal        = "Something went wrong. Please try again later."
)

const recentResults = 5

// page renders name with the fields every template expects.
func (s *Server) page(c *gin.Context, status int, name, title string, data gin.H) {
	h := gin.H{"Title": title, "User": "", "Flash": popFlash(c), "Error": "", "Username": ""}
	if sess := currentSession(c); sess != nil {
		h["User"] = sess.Username
	}
	for k, v := range data {
		h[k] = v
	}
	c.HTML(status, name, h)
}

func (s *Server) index(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) loginPage(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	s.page(c, http.StatusOK, "login.html", "Log in", nil)
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		s.page(c, http.StatusBadRequest, "login.html", "Log in", gin.H{"Error": msgLoginBlank, "Username": username})
		return
	}

	account, err := s.accounts.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.page(c, http.StatusUnauthorized, "login.html", "Log in", gin.H{"Error": msgLoginFailed, "Username": username})
			return
		}
		s.logger.Error(c.Request.Context(), "authenticate", "error", err)
		s.page(c, http.StatusInternalServerError, "login.html", "Log in", gin.H{"Error": msgInternal, "Username": username})
		return
	}

	if !s.startSession(c, account) {
		return
	}
	setFlash(c, "success", "Logged in successfully!")
	c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) registerPage(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	s.page(c, http.StatusOK, "register.html", "Register", nil)
}

func (s *Server) register(c *gin.Context) {
	username := c.PostForm("username")

	account, err := s.accounts.Register(c.Request.Context(), username, c.PostForm("password"), c.PostForm("confirmPassword"))
	if err != nil {
		status, msg := http.StatusInternalServerError, msgInternal
		switch {
		case errors.Is(err, common.ErrDuplicateUsername):
			status, msg = http.StatusConflict, msgDuplicate
		case errors.Is(err, common.ErrPasswordMismatch):
			status, msg = http.StatusBadRequest, msgMismatch
		case errors.Is(err, common.ErrValidation):
			status, msg = http.StatusBadRequest, msgLoginBlank
		default:
			s.logger.Error(c.Request.Context(), "register", "error", err)
		}
		s.page(c, status, "register.html", "Register", gin.H{"Error": msg, "Username": username})
		return
	}

	if !s.startSession(c, account) {
		return
	}
	setFlash(c, "success", "Registered and logged in successfully!")
	c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) startSession(c *gin.Context, account *models.Account) bool {
	token, err := s.accounts.IssueSession(account)
	if err != nil {
		s.logger.Error(c.Request.Context(), "issue session", "error", err)
		s.page(c, http.StatusInternalServerError, "error.html", "Error", nil)
		return false
	}
	setSessionCookie(c, token, s.accounts.SessionTTL())
	return true
}

func (s *Server) logout(c *gin.Context) {
	clearCookie(c, common.SessionCookieName)
	setFlash(c, "info", "You have been logged out.")
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) dashboard(c *gin.Context) {
	sess := currentSession(c)
	list, err := s.results.List(c.Request.Context(), sess.AccountID)
	if err != nil {
		s.logger.Error(c.Request.Context(), "list results", "account_id", sess.AccountID, "error", err)
		list = nil
	}

	// newest last in history; show them newest first
	recent := make([]*models.Result, 0, recentResults)
	for i := len(list) - 1; i >= 0 && len(recent) < recentResults; i-- {
		recent = append(recent, list[i])
	}
	s.page(c, http.StatusOK, "dashboard.html", "Dashboard", gin.H{"Recent": recent})
}

func (s *Server) uploadPage(c *gin.Context) {
	s.page(c, http.StatusOK, "upload.html", "Upload", nil)
}

func (s *Server) upload(c *gin.Context) {
	ctx := c.Request.Context()
	sess := currentSession(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	fh, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.page(c, http.StatusRequestEntityTooLarge, "upload.html", "Upload", gin.H{"Error": msgTooLarge})
			return
		}
		s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgNoFile})
		return
	}
	if fh.Filename == "" {
		s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgNoFile})
		return
	}
	if !common.IsAllowedAudioFile(fh.Filename) {
		s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgBadType})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgNoFile})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgNoFile})
		return
	}
	if len(data) == 0 {
		s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgEmptyFile})
		return
	}

	rec, err := s.runner.Run(ctx, sess.AccountID, data, fh.Filename)
	if err != nil {
		s.logger.Error(ctx, "processing upload", "account_id", sess.AccountID, "filename", fh.Filename, "error", err)
		switch {
		case errors.Is(err, speech.ErrTooLarge):
			s.page(c, http.StatusRequestEntityTooLarge, "upload.html", "Upload", gin.H{"Error": msgTooLarge})
		case errors.Is(err, speech.ErrRejected):
			s.page(c, http.StatusBadRequest, "upload.html", "Upload", gin.H{"Error": msgUnreadableAudio})
		case errors.Is(err, common.ErrTranscription), errors.Is(err, common.ErrSynthesis):
			s.page(c, http.StatusBadGateway, "upload.html", "Upload", gin.H{"Error": msgProcessing})
		default:
			s.page(c, http.StatusInternalServerError, "upload.html", "Upload", gin.H{"Error": msgProcessing})
		}
		return
	}

	c.Redirect(http.StatusFound, "/result/"+rec.ID)
}

func (s *Server) result(c *gin.Context) {
	sess := currentSession(c)

	rec, err := s.results.Get(c.Request.Context(), c.Param("id"), sess.AccountID)
	if err != nil {
		if isHidden(err) {
			setFlash(c, "danger", msgNotFound)
			c.Redirect(http.StatusFound, "/dashboard")
			return
		}
		s.logger.Error(c.Request.Context(), "get result", "error", err)
		s.page(c, http.StatusInternalServerError, "error.html", "Error", nil)
		return
	}

	s.page(c, http.StatusOK, "result.html", "Result", gin.H{"Result": rec})
}

func (s *Server) history(c *gin.Context) {
	sess := currentSession(c)

	list, err := s.results.List(c.Request.Context(), sess.AccountID)
	if err != nil {
		s.logger.Error(c.Request.Context(), "list results", "account_id", sess.AccountID, "error", err)
		s.page(c, http.StatusInternalServerError, "error.html", "Error", nil)
		return
	}
	s.page(c, http.StatusOK, "history.html", "History", gin.H{"Results": list})
}

func (s *Server) audio(c *gin.Context) {
	sess := currentSession(c)

	obj, rc, err := s.results.OpenAudio(c.Request.Context(), c.Param("id"), sess.AccountID)
	if err != nil {
		if isHidden(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "open audio", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer rc.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = "audio/wav"
	}
	size := obj.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, ct, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%s", strconv.Quote(obj.Filename)),
	})
}

// isHidden reports errors shown to callers as plain "not found".
func isHidden(err error) bool {
	return errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorForbidden)
}
