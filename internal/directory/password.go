package directory

import (
	"context"
	"strconv"
	"time"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// Object classes that decide which credential attributes an entry
// carries.
const (
	classSambaAccount  = "sambaSamAccount"
	classShadowAccount = "shadowAccount"
)

// Mutator issues the modify operation that replaces an entry's
// credentials. It assumes the candidate already passed local policy;
// enforcing that ordering is the Manager's job.
type Mutator struct {
	client ldapc.Client
	log    ldapc.Logger
	now    func() time.Time
}

// NewMutator creates a credential mutator.
func NewMutator(client ldapc.Client, log ldapc.Logger) *Mutator {
	if log == nil {
		log = ldapc.NopLogger{}
	}
	return &Mutator{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// ChangePassword replaces the password attributes of the resolved
// entry in a single modify. The plaintext is consumed here: it is
// hashed into the directory's storage forms ({SSHA} for userPassword,
// NT hash for sambaNTPassword) and never logged or echoed back.
//
// Directory-level rejections are distinguished for the caller:
// validation refusals become KindPolicyServer (the server has stricter
// or different rules than local policy), and a missing target becomes
// KindStaleEntry (the entry changed between resolution and mutation —
// no silent re-resolution happens here).
func (m *Mutator) ChangePassword(ctx context.Context, entry *UserEntry, candidate string) error {
	if entry == nil || entry.DN == "" {
		return newOpError(KindStaleEntry, "entry has no distinguished name", nil)
	}

	replace := map[string][]string{
		"userPassword": {HashSSHA(candidate)},
	}

	nowUnix := m.now().Unix()
	if entry.HasObjectClass(classSambaAccount) {
		replace["sambaNTPassword"] = []string{HashNT(candidate)}
		replace["sambaPwdLastSet"] = []string{strconv.FormatInt(nowUnix, 10)}
	}
	if entry.HasObjectClass(classShadowAccount) {
		// shadowLastChange counts days, not seconds.
		replace["shadowLastChange"] = []string{strconv.FormatInt(nowUnix/(24*60*60), 10)}
	}

	err := m.client.Modify(ctx, &ldapc.ModifyRequest{
		DN:                entry.DN,
		ReplaceAttributes: replace,
	})
	if err != nil {
		return m.classifyModifyError(entry, err)
	}

	m.log.Info("Password changed", map[string]any{
		"dn":  entry.DN,
		"uid": entry.UID,
	})
	return nil
}

func (m *Mutator) classifyModifyError(entry *UserEntry, err error) error {
	switch {
	case ldapc.IsNotFoundError(err):
		return newOpError(KindStaleEntry,
			"entry no longer exists at the resolved DN", err)
	case ldapc.IsValidationError(err):
		return newOpError(KindPolicyServer,
			"directory rejected the password under its own policy", err)
	default:
		return classifyDirectoryError("password modify failed", err)
	}
}
