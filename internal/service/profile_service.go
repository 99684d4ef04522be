package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/internal/task"
	"github.com/d60-Lab/blogsphere/pkg/errcode"
	"github.com/d60-Lab/blogsphere/pkg/logger"
)

const (
	msgProfileNotFound = "Profile not found"
	msgUsernameTaken   = "This username is already taken"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ProfileInput 资料更新字段；nil 表示未提交
type ProfileInput struct {
	FirstName *string `json:"first_name" form:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" form:"last_name" validate:"omitempty,max=150"`
	Username  *string `json:"username" form:"username" validate:"omitempty,max=150,username"`
	Bio       *string `json:"bio" form:"bio"`
	Gender    *string `json:"gender" form:"gender" validate:"omitempty,oneof=male female other"`
	Country   *string `json:"country" form:"country" validate:"omitempty,iso3166_1_alpha2"`
}

type ProfileService interface {
	Me(ctx context.Context, caller *model.User) (*model.Profile, error)
	// Update creates the profile on first use. partial=false requires every
	// identity field.
	Update(ctx context.Context, caller *model.User, in ProfileInput, partial bool) (*model.Profile, error)
	// ReplaceAvatar validates the upload and hands it to the job queue.
	ReplaceAvatar(ctx context.Context, caller *model.User, upload *Upload) error
}

type profileService struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	queue    task.Queue
	validate *validator.Validate
	maxImage int64
}

func NewProfileService(profiles repository.ProfileRepository, users repository.UserRepository, queue task.Queue, maxImageBytes int64) ProfileService {
	v, err := newValidator()
	if err != nil {
		panic(fmt.Sprintf("profile validator: %v", err))
	}
	return &profileService{profiles: profiles, users: users, queue: queue, validate: v, maxImage: maxImageBytes}
}

// newValidator reports field errors under their json names and knows the
// username rule.
func newValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register username rule: %w", err)
	}
	return v, nil
}

func (s *profileService) Me(ctx context.Context, caller *model.User) (*model.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, caller.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.NotFound(msgProfileNotFound)
	}
	return p, err
}

func (s *profileService) Update(ctx context.Context, caller *model.User, in ProfileInput, partial bool) (*model.Profile, error) {
	if err := s.check(in, partial); err != nil {
		return nil, err
	}

	if in.Username != nil {
		taken, err := s.users.UsernameTaken(ctx, *in.Username, caller.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errcode.PermissionDenied(msgUsernameTaken)
		}
	}

	userFields := map[string]any{}
	if in.FirstName != nil {
		userFields["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		userFields["last_name"] = *in.LastName
	}
	if in.Username != nil {
		userFields["username"] = *in.Username
	}

	p, err := s.profiles.Save(ctx, caller.ID, func(p *model.Profile) {
		if in.Bio != nil {
			p.Bio = *in.Bio
		}
		if in.Gender != nil {
			p.Gender = model.Gender(*in.Gender)
		}
		if in.Country != nil {
			p.Country = strings.ToUpper(*in.Country)
		}
	}, userFields)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 校验之后被别人抢注
		return nil, errcode.PermissionDenied(msgUsernameTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

func (s *profileService) ReplaceAvatar(ctx context.Context, caller *model.User, upload *Upload) error {
	p, err := s.Me(ctx, caller)
	if err != nil {
		return err
	}
	if msgs := validateImage(upload, s.maxImage); msgs != nil {
		return errcode.Validation(map[string][]string{"avatar": msgs})
	}

	err = s.queue.Enqueue(ctx, task.AvatarJob{
		ProfileID: p.ID,
		Filename:  upload.Filename,
		Content:   upload.Content,
	})
	if err != nil {
		logger.Warn("enqueue avatar job", zap.String("profile_id", p.ID), zap.Error(err))
		return errcode.Unavailable("Avatar upload could not be scheduled, try again later.", err)
	}
	return nil
}

func (s *profileService) check(in ProfileInput, partial bool) error {
	fields := map[string][]string{}
	required := []struct {
		name string
		v    *string
	}{
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"username", in.Username},
		{"gender", in.Gender},
		{"country", in.Country},
	}
	for _, f := range required {
		switch {
		case f.v == nil && !partial:
			fields[f.name] = append(fields[f.name], msgRequired)
		case f.v != nil && *f.v == "" && f.name != "first_name" && f.name != "last_name":
			fields[f.name] = append(fields[f.name], msgBlank)
		}
	}

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
		}
	}
	if len(fields) > 0 {
		return errcode.Validation(fields)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof", "iso3166_1_alpha2":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
