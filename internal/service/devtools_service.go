package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/domain"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// StepKey names one stage of a developer scenario.
type StepKey string

const (
	StepSignup  StepKey = "signup"
	StepLogin   StepKey = "login"
	StepProfile StepKey = "profile"
	StepRequest StepKey = "request"
)

var scenarioOrder = []StepKey{StepSignup, StepLogin, StepProfile, StepRequest}

// StepPhase is the outcome of a scenario step.
type StepPhase string

const (
	StepIdle    StepPhase = "idle"
	StepPending StepPhase = "pending"
	StepSuccess StepPhase = "success"
	StepError   StepPhase = "error"
)

// StepState reports one step.
type StepState struct {
	Key     StepKey   `json:"key"`
	Status  StepPhase `json:"status"`
	Message string    `json:"message,omitempty"`
}

// DevTemplate is a ready-made guardian with profile and locker request.
type DevTemplate struct {
	Index    int          `json:"index"`
	Label    string       `json:"label"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Profile  ProfileInput `json:"profile"`
	Request  RequestInput `json:"request"`
}

// ScenarioInput selects the steps to run. No steps means all of them.
type ScenarioInput struct {
	Steps           []StepKey `json:"steps"`
	PreferredZoneID *string   `json:"preferred_zone_id"`
}

// ScenarioResult is the state after a scenario run.
type ScenarioResult struct {
	Template  DevTemplate   `json:"template"`
	Steps     []StepState   `json:"steps"`
	UserID    string        `json:"user_id,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Token     *domain.Token `json:"-"`
}

var (
	devParentNames = []string{
		"Alex Johnson", "Jamie Smith", "Patricia Müller", "Lea Schneider", "Marco Rossi",
		"Linda Keller", "Stefan Weber", "Nora Fischer", "Daniel Baumann", "Sofia Winkler",
	}
	devAddresses = []string{
		"Bahnhofstrasse 10\n8001 Zürich",
		"Seestrasse 25\n8008 Zürich",
		"Lindenweg 4\n8302 Kloten",
		"Gartenstrasse 16\n8700 Küsnacht",
		"Postgasse 3\n3011 Bern",
		"Alpenblick 8\n6003 Luzern",
		"Hauptstrasse 45\n4410 Liestal",
		"Schulweg 12\n5000 Aarau",
		"Bergstrasse 9\n9000 St. Gallen",
		"Sonnenweg 22\n7000 Chur",
	}
	devPhones = []string{
		"+41442010001", "+41435551202", "+41448893303", "+41443004404", "+41312205505",
		"+41412296606", "+41613007707", "+41628328808", "+41712219909", "+41812551110",
	}
	devStudents = []string{
		"Emma Johnson", "Luca Smith", "Mia Müller", "Noah Schneider", "Giulia Rossi",
		"Tim Keller", "Lena Weber", "Finn Fischer", "Nina Baumann", "Jonas Winkler",
	}
	devClasses       = []string{"6A", "6B", "7A", "7B", "8A", "8B", "9A", "9B", "10A", "10B"}
	devLockerNumbers = []int{102, 118, 205, 212, 305, 322, 410, 512, 606, 710}
)

const devSchoolYear = "2025/26"

// DevToolsService drives end-to-end record creation for manual testing.
type DevToolsService struct {
	auth      *AuthService
	requests  *RequestService
	logger    *zap.Logger
	templates []DevTemplate
}

// NewDevToolsService creates the service.
func NewDevToolsService(authService *AuthService, requests *RequestService, logger *zap.Logger) *DevToolsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DevToolsService{auth: authService, requests: requests, logger: logger, templates: buildDevTemplates()}
}

func buildDevTemplates() []DevTemplate {
	templates := make([]DevTemplate, len(devParentNames))
	for i, name := range devParentNames {
		n := i + 1
		language := domain.LanguageGerman
		if i%3 == 1 {
			language = domain.LanguageEnglish
		}
		templates[i] = DevTemplate{
			Index:    n,
			Label:    fmt.Sprintf("User %d - %s", n, name),
			Email:    fmt.Sprintf("dev-user%d@example.test", n),
			Password: fmt.Sprintf("Spindit#%d0", n),
			Profile: ProfileInput{
				FullName: name,
				Address:  devAddresses[i],
				Phone:    devPhones[i],
				Language: language,
			},
			Request: RequestInput{
				RequesterName:    name,
				RequesterAddress: devAddresses[i],
				RequesterPhone:   devPhones[i],
				StudentName:      devStudents[i],
				StudentClass:     devClasses[i],
				SchoolYear:       devSchoolYear,
				PreferredLocker:  strconv.Itoa(devLockerNumbers[i]),
			},
		}
	}
	return templates
}

// Templates lists the built-in guardians.
func (s *DevToolsService) Templates() []DevTemplate {
	out := make([]DevTemplate, len(s.templates))
	copy(out, s.templates)
	return out
}

// Template returns the template with the 1-based index.
func (s *DevToolsService) Template(index int) (DevTemplate, error) {
	if index < 1 || index > len(s.templates) {
		return DevTemplate{}, apperrors.NewNotFound("template", map[string]any{"index": index})
	}
	return s.templates[index-1], nil
}

// RunScenario runs signup, login, profile update and request creation for a
// template. It stops at the first failing step; later steps stay idle. A
// successful signup also counts as the login step.
func (s *DevToolsService) RunScenario(ctx context.Context, index int, input ScenarioInput) (ScenarioResult, error) {
	tpl, err := s.Template(index)
	if err != nil {
		return ScenarioResult{}, err
	}
	wanted, err := scenarioSteps(input.Steps)
	if err != nil {
		return ScenarioResult{}, err
	}
	if input.PreferredZoneID != nil {
		tpl.Request.PreferredZoneID = input.PreferredZoneID
	}

	result := ScenarioResult{Template: tpl}
	states := map[StepKey]*StepState{}
	for _, key := range scenarioOrder {
		states[key] = &StepState{Key: key, Status: StepIdle}
	}
	set := func(key StepKey, status StepPhase, message string) {
		states[key].Status = status
		states[key].Message = message
	}

	var user *domain.User
	for _, key := range scenarioOrder {
		if !wanted[key] || states[key].Status == StepSuccess {
			continue
		}
		set(key, StepPending, "")
		var stepErr error
		switch key {
		case StepSignup:
			var token domain.Token
			user, token, stepErr = s.auth.Signup(ctx, SignupInput{
				Email: tpl.Email, Password: tpl.Password, PasswordConfirm: tpl.Password, Profile: tpl.Profile,
			})
			if stepErr == nil {
				result.Token = &token
				set(StepSignup, StepSuccess, "User "+user.ID)
				set(StepLogin, StepSuccess, "Authenticated after sign up")
			}
		case StepLogin:
			var token domain.Token
			user, token, stepErr = s.auth.Login(ctx, LoginInput{Email: tpl.Email, Password: tpl.Password})
			if stepErr == nil {
				result.Token = &token
				set(StepLogin, StepSuccess, "Logged in as "+user.ID)
			}
		case StepProfile:
			if user == nil {
				stepErr = apperrors.NewUnauthorized("no authenticated user available")
				break
			}
			var updated *domain.User
			updated, stepErr = s.auth.UpdateProfile(ctx, user.ID, tpl.Profile)
			if stepErr == nil {
				user = updated
				set(StepProfile, StepSuccess, "Saved for "+user.ID)
			}
		case StepRequest:
			if user == nil {
				stepErr = apperrors.NewUnauthorized("no authenticated user available")
				break
			}
			var request *domain.Request
			request, stepErr = s.requests.Create(ctx, user.ID, tpl.Request)
			if stepErr == nil {
				result.RequestID = request.ID
				set(StepRequest, StepSuccess, "Request "+request.ID)
			}
		}
		if stepErr != nil {
			set(key, StepError, stepErr.Error())
			s.logger.Info("developer scenario step failed",
				zap.Int("template", index), zap.String("step", string(key)), zap.Error(stepErr))
			break
		}
	}

	if user != nil {
		result.UserID = user.ID
	}
	for _, key := range scenarioOrder {
		result.Steps = append(result.Steps, *states[key])
	}
	return result, nil
}

func scenarioSteps(keys []StepKey) (map[StepKey]bool, error) {
	wanted := map[StepKey]bool{}
	if len(keys) == 0 {
		for _, key := range scenarioOrder {
			wanted[key] = true
		}
		return wanted, nil
	}
	for _, key := range keys {
		switch key {
		case StepSignup, StepLogin, StepProfile, StepRequest:
			wanted[key] = true
		default:
			return nil, fieldError("steps", "unknown step "+string(key))
		}
	}
	return wanted, nil
}
