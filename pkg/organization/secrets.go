package organization

import "github.com/dmitrymomot/helpdesk/pkg/secrets"

// PlainSecrets is the decrypted form of Secrets.
type PlainSecrets struct {
	APIKey       string
	MailUsername string
	MailPassword string
}

// SealSecrets encrypts plain under the organization's id and stores the
// ciphertexts on o.
func (o *Organization) SealSecrets(s *secrets.Sealer, plain PlainSecrets) error {
	scope := o.ID[:]

	apiKey, err := s.Seal(scope, plain.APIKey)
	if err != nil {
		return err
	}
	user, err := s.Seal(scope, plain.MailUsername)
	if err != nil {
		return err
	}
	pass, err := s.Seal(scope, plain.MailPassword)
	if err != nil {
		return err
	}

	o.Secrets = Secrets{APIKey: apiKey, MailUsername: user, MailPassword: pass}
	return nil
}

// OpenSecrets decrypts the organization's sealed secrets.
func (o *Organization) OpenSecrets(s *secrets.Sealer) (PlainSecrets, error) {
	scope := o.ID[:]

	apiKey, err := s.Open(scope, o.Secrets.APIKey)
	if err != nil {
		return PlainSecrets{}, err
	}
	user, err := s.Open(scope, o.Secrets.MailUsername)
	if err != nil {
		return PlainSecrets{}, err
	}
	pass, err := s.Open(scope, o.Secrets.MailPassword)
	if err != nil {
		return PlainSecrets{}, err
	}
	return PlainSecrets{APIKey: apiKey, MailUsername: user, MailPassword: pass}, nil
}
