// Package apierror maps domain and backend errors onto HTTP responses.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/editor/media"
	"github.com/todaysafrica/newsroom/internal/editor/workflow"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

// Respond writes the response for err.
func Respond(c *gin.Context, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, media.ErrEmpty):
		response.BadRequest(c, "Le fichier est vide")
	case errors.Is(err, media.ErrTooLarge), errors.Is(err, backend.ErrPayloadTooLarge):
		response.PayloadTooLarge(c, "Le fichier dépasse la taille maximale autorisée")
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, backend.ErrUnsupportedMedia):
		response.UnsupportedMediaType(c, "Format de fichier non pris en charge")
	case errors.Is(err, media.ErrStorage):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, "L'envoi du fichier a échoué, réessayez")
	case errors.Is(err, media.ErrUnknownRef):
		response.NotFoundMsg(c, "Téléversement inconnu")
	case errors.Is(err, codec.ErrUnresolvedMedia):
		response.Conflict(c, "Des images sont encore en cours d'envoi ou ont échoué")

	case errors.Is(err, workflow.ErrUnknownAction):
		response.NotFoundMsg(c, "Action inconnue")
	case errors.Is(err, workflow.ErrIllegalTransition):
		response.Conflict(c, "Cette action n'est pas possible dans l'état actuel de l'article")
	case errors.Is(err, workflow.ErrReasonRequired):
		response.UnprocessableEntity(c, "Un motif de rejet est obligatoire")
	case errors.Is(err, workflow.ErrConfirmationRequired):
		response.UnprocessableEntity(c, "Cette action doit être confirmée")
	case errors.Is(err, workflow.ErrAuthorRequired):
		response.UnprocessableEntity(c, "L'article doit avoir un auteur")
	case errors.Is(err, workflow.ErrInvalidPublication):
		response.UnprocessableEntity(c, err.Error())

	case errors.Is(err, backend.ErrUnauthorized):
		response.Unauthorized(c)
	case errors.Is(err, backend.ErrForbidden):
		response.Forbidden(c)
	case errors.Is(err, backend.ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, backend.ErrConflict):
		response.Conflict(c, backendMessage(err, "L'article a été modifié entre-temps, rechargez-le"))
	case errors.Is(err, backend.ErrBadRequest):
		response.UnprocessableEntity(c, backendMessage(err, "La demande a été refusée"))
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		response.BadGateway(c, err)
	case errors.As(err, &apiErr):
		response.BadGateway(c, err)
	default:
		response.InternalError(c, err)
	}
}

func backendMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
