package controllers

import (
	"net/http"

	"github.com/Marlon-Urena/userAccountService/api/middleware"
	"github.com/Marlon-Urena/userAccountService/api/responses"
	"github.com/Marlon-Urena/userAccountService/api/validators"
	"github.com/Marlon-Urena/userAccountService/internal/accounts"
	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
	"github.com/Marlon-Urena/userAccountService/pkg/pagination"
)

type AccountsController struct {
	service     accounts.Service
	logg        *logger.Logger
	maxUploadMB int
}

func NewAccountsController(service accounts.Service, logg *logger.Logger, maxUploadMB int) *AccountsController {
	if maxUploadMB <= 0 {
		maxUploadMB = 8
	}
	return &AccountsController{service: service, logg: logg, maxUploadMB: maxUploadMB}
}

type registerRequest struct {
	SubjectID   string  `json:"subject_id" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Username    string  `json:"username" validate:"required,min=3,max=30"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
	ZipCode     *string `json:"zip_code,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

func (c *AccountsController) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	account, err := c.service.Register(r.Context(), accounts.CreateAccountInput{
		SubjectID:   body.SubjectID,
		Email:       body.Email,
		Username:    body.Username,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Address:     body.Address,
		City:        body.City,
		State:       body.State,
		Country:     body.Country,
		ZipCode:     body.ZipCode,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccessStatus(w, http.StatusCreated, account)
}

type emailAvailabilityRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (c *AccountsController) EmailAvailability(w http.ResponseWriter, r *http.Request) {
	var body emailAvailabilityRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	available, err := c.service.EmailAvailable(r.Context(), body.Email)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, map[string]bool{"available": available})
}

type usernameAvailabilityRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

func (c *AccountsController) UsernameAvailability(w http.ResponseWriter, r *http.Request) {
	var body usernameAvailabilityRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	available, err := c.service.UsernameAvailable(r.Context(), body.Username)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, map[string]bool{"available": available})
}

func (c *AccountsController) CurrentAccount(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	account, err := c.service.Account(r.Context(), subjectID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, account)
}

type updateAccountRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
	ZipCode     *string `json:"zip_code,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=online offline away busy"`
}

func (c *AccountsController) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	var body updateAccountRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	account, err := c.service.UpdateAccount(r.Context(), subjectID, accounts.UpdateAccountInput{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Address:     body.Address,
		City:        body.City,
		State:       body.State,
		Country:     body.Country,
		ZipCode:     body.ZipCode,
		PhoneNumber: body.PhoneNumber,
		Status:      body.Status,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, account)
}

type personalInfoRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Address   *string `json:"address,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Country   *string `json:"country,omitempty"`
	ZipCode   *string `json:"zip_code,omitempty"`
}

func (c *AccountsController) UpdatePersonalInfo(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	var body personalInfoRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	account, err := c.service.UpdatePersonalInfo(r.Context(), subjectID, accounts.PersonalInfoInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Address:   body.Address,
		City:      body.City,
		State:     body.State,
		Country:   body.Country,
		ZipCode:   body.ZipCode,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, account)
}

type changeEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (c *AccountsController) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	var body changeEmailRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	account, err := c.service.ChangeEmail(r.Context(), subjectID, body.Email)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, account)
}

type changeUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

func (c *AccountsController) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	var body changeUsernameRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	account, err := c.service.ChangeUsername(r.Context(), subjectID, body.Username)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, account)
}

func (c *AccountsController) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	maxBytes := int64(c.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	account, err := c.service.ChangeAvatar(r.Context(), subjectID, header.Filename, contentType, file)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, account)
}

func (c *AccountsController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.SubjectIDFromContext(r.Context())

	if err := c.service.Delete(r.Context(), subjectID); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, map[string]string{"status": "deleted"})
}

func (c *AccountsController) Contacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := pagination.FromQuery(r.URL.Query())

	contacts, err := c.service.Contacts(r.Context(), query, page)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, contacts)
}
