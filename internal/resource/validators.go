package resource

import "AthleteAPI/internal/validation"

// registered per model name; models without an entry accept the raw body
var modelValidators = map[string]Validators{
	"User": {
		Create: validation.Struct[validation.CreateUser](),
		Update: validation.Struct[validation.UpdateUser](),
	},
}

// ValidatorsFor returns the create/update validators of a model.
func ValidatorsFor(modelName string) Validators {
	return modelValidators[modelName]
}
