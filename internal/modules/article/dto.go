package article

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/editor/workflow"
	"github.com/todaysafrica/newsroom/internal/models"
)

// Input is a create or update request. Blocks win over Markup when both
// are given.
type Input struct {
	ID           int64                 `json:"-"`
	Title        string                `json:"titre"             validate:"required,max=200"`
	Description  string                `json:"description"       validate:"min=20,max=500"`
	RubriqueID   int64                 `json:"rubriqueId"        validate:"required,gt=0"`
	CoverMediaID *int64                `json:"imageCouvertureId" validate:"omitempty,gt=0"`
	Region       models.Region         `json:"region"            validate:"omitempty,region"`
	Blocks       []models.ContentBlock `json:"blocsContenu"`
	Markup       string                `json:"markup"`
	// ConfirmEmpty acknowledges saving an article without content.
	ConfirmEmpty bool `json:"confirmEmpty"`
	// Submit sends the article to review once it is saved.
	Submit bool `json:"submit"`
}

// TransitionInput carries what a workflow action may need.
type TransitionInput struct {
	Reason      string                    `json:"motif"`
	Confirm     bool                      `json:"confirm"`
	Publication *models.PublicationConfig `json:"publication"`
}

// ListQuery holds query params for listing articles.
type ListQuery struct {
	Status     string `form:"statut"`
	RubriqueID int64  `form:"rubriqueId"`
	AuthorID   int64  `form:"auteurId"`
	Mine       bool   `form:"mine"`
	Query      string `form:"q"`
}

// View is an article as the dashboard shows it.
type View struct {
	Article  *models.Article   `json:"article"`
	Markup   string            `json:"markup"`
	Editable bool              `json:"editable"`
	Actions  []workflow.Action `json:"actions"`
}

// SaveResult reports a save and the optional submission that followed it.
type SaveResult struct {
	View
	Submitted   bool   `json:"submitted"`
	SubmitError string `json:"submitError,omitempty"`
}

type TagsResult struct {
	Tags   []string `json:"tags"`
	Source string   `json:"source"`
}

// ValidationError lists invalid fields by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "invalid article: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("region", func(fl validator.FieldLevel) bool {
		return models.Region(fl.Field().String()).Valid()
	})
	return v
}

var fieldMessages = map[string]string{
	"titre.required":       "Le titre est obligatoire",
	"titre.max":            "Le titre ne doit pas dépasser 200 caractères",
	"description.min":      "La description doit contenir au moins 20 caractères",
	"description.max":      "La description ne doit pas dépasser 500 caractères",
	"rubriqueId.required":  "Choisissez une rubrique",
	"rubriqueId.gt":        "Choisissez une rubrique",
	"imageCouvertureId.gt": "Image de couverture invalide",
	"region.region":        "Région inconnue",
}

// Validate checks in before any backend call.
func (in *Input) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	fields := map[string]string{}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			key := fe.Field() + "." + fe.Tag()
			msg, ok := fieldMessages[key]
			if !ok {
				msg = fmt.Sprintf("valeur invalide (%s)", fe.Tag())
			}
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = msg
			}
		}
	}
	if err := validateBlocks(in.Blocks); err != nil {
		fields["blocsContenu"] = err.Error()
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateBlocks(blocks []models.ContentBlock) error {
	for i, b := range blocks {
		if !b.Type.Valid() {
			return fmt.Errorf("bloc %d: type %q inconnu", i, b.Type)
		}
		if b.MediaID != nil && b.Type != models.BlockImage {
			return fmt.Errorf("bloc %d: seul un bloc IMAGE peut référencer un média", i)
		}
	}
	if err := models.ValidateOrder(blocks); err != nil {
		return fmt.Errorf("ordre des blocs invalide: %v", err)
	}
	return nil
}

// checkMediaRefs refuses IMAGE blocks that point at nothing or at a local
// preview. Such blocks never reach the backend.
func checkMediaRefs(blocks []models.ContentBlock) error {
	for i, b := range blocks {
		if b.Type != models.BlockImage {
			continue
		}
		src := strings.TrimSpace(b.Content)
		if src == "" {
			src = strings.TrimSpace(b.URL)
		}
		if src == "" || strings.HasPrefix(src, codec.PreviewScheme) || strings.HasPrefix(strings.TrimSpace(b.URL), codec.PreviewScheme) {
			return fmt.Errorf("%w: bloc %d", codec.ErrUnresolvedMedia, i)
		}
	}
	return nil
}
