package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// sambaIDAttempts bounds the delete+add compare-and-swap on the samba
// domain counters. Two concurrent registrations can race on the same
// counter values; losing the swap is cheap to retry.
const sambaIDAttempts = 5

// AccountTemplate holds the per-deployment constants stamped onto
// every new student account.
type AccountTemplate struct {
	UserOU     string `default:"ou=alunos,ou=academicos,ou=usuarios" mapstructure:"user_ou"`
	HomeBase   string `default:"/usuarios/alunos" mapstructure:"home_base"`
	LoginShell string `default:"/bin/bash" mapstructure:"login_shell"`
	MailDomain string `default:"dcc.ufrj.br" mapstructure:"mail_domain"`
	GIDNumber  string `default:"1000" mapstructure:"gid_number"`
	Quota      string `default:"1024" mapstructure:"quota"`

	SambaSIDPrefix       string `mapstructure:"samba_sid_prefix"`
	SambaAcctFlags       string `default:"[U          ]" mapstructure:"samba_acct_flags"`
	SambaLMPassword      string `default:"NO PASSWORDXXXXXXXXXXXXXXXXXXXXX" mapstructure:"samba_lm_password"`
	SambaPasswordHistory string `default:"0000000000000000000000000000000000000000000000000000000000000000" mapstructure:"samba_password_history"`
	SambaPrimaryGroupSID string `mapstructure:"samba_primary_group_sid"`
}

// validate rejects a template missing the samba SID settings. They
// have no defaults, and a zero value would stamp new accounts with a
// bare-RID sambaSID and an empty sambaPrimaryGroupSID.
func (t AccountTemplate) validate() error {
	if t.SambaSIDPrefix == "" {
		return fmt.Errorf("account template: samba_sid_prefix is required")
	}
	if t.SambaPrimaryGroupSID == "" {
		return fmt.Errorf("account template: samba_primary_group_sid is required")
	}
	return nil
}

// Registration carries the normalized inputs for one new account.
// Callers should run the Process* helpers before filling this in.
type Registration struct {
	DRE      string
	Name     string
	Email    string
	Phone    string
	Password string
}

// LookupResult reports whether a registry number already has an
// account. When it does, UID names the existing account; otherwise
// UID is the first free username generated from the student's name.
type LookupResult struct {
	UID    string
	Exists bool
}

// Registrar creates student accounts. It owns the two directory-side
// steps of registration: finding out whether the student is already
// registered, and writing the new entry with freshly allocated samba
// IDs.
type Registrar struct {
	client   ldapc.Client
	resolver *Resolver
	baseDN   string
	template AccountTemplate
	log      ldapc.Logger
	now      func() time.Time
}

// NewRegistrar wires a Registrar over an LDAP client.
func NewRegistrar(client ldapc.Client, baseDN string, template AccountTemplate, log ldapc.Logger) *Registrar {
	if log == nil {
		log = ldapc.NopLogger{}
	}
	return &Registrar{
		client:   client,
		resolver: NewResolver(client, baseDN, log),
		baseDN:   baseDN,
		template: template,
		log:      log,
		now:      time.Now,
	}
}

// Lookup checks whether dre already has an account. If not, it walks
// the username candidates for name, shortest first, and returns the
// first one no entry holds.
func (r *Registrar) Lookup(ctx context.Context, dre, name string) (*LookupResult, error) {
	entry, err := r.resolver.ResolveDRE(ctx, dre)
	switch {
	case err == nil:
		return &LookupResult{UID: entry.UID, Exists: true}, nil
	case !IsKind(err, KindNotFound):
		return nil, err
	}

	parsed, err := ParseName(name)
	if err != nil {
		return nil, newOpError(KindPolicyClient, err.Error(), err)
	}

	for _, candidate := range parsed.Usernames() {
		taken, err := r.resolver.UIDExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !taken {
			return &LookupResult{UID: candidate}, nil
		}
	}
	return nil, newOpError(KindPolicyClient,
		"every username candidate for this name is taken", nil)
}

// Register creates the account entry for uid with the given data. The
// caller decides the uid, normally via Lookup. Password policy for
// new accounts is RegistrationPasswordPolicy, checked here before any
// write.
func (r *Registrar) Register(ctx context.Context, uid string, reg *Registration) error {
	if err := r.template.validate(); err != nil {
		return err
	}
	if err := RegistrationPasswordPolicy().Validate(reg.Password, uid); err != nil {
		return err
	}

	uidNumber, rid, err := r.allocateSambaIDs(ctx)
	if err != nil {
		return err
	}

	dn := fmt.Sprintf("uid=%s,%s,%s", ldapc.EscapeDNValue(uid), r.template.UserOU, r.baseDN)

	nowUnix := r.now().Unix()
	kickoff := nowUnix + 3600*24*60*60
	nowDays := nowUnix / (24 * 60 * 60)
	renewal := nowDays + 3600

	nameWords := strings.Fields(reg.Name)
	if len(nameWords) < 2 {
		return newOpError(KindPolicyClient, "name needs at least two words", nil)
	}
	cn := nameWords[0]
	sn := strings.Join(nameWords[1:], " ")

	gecos := asciiFold(reg.Name)

	attrs := map[string][]string{
		"objectClass": {
			"dcc", "dccAluno", "sambaSamAccount",
			"shadowAccount", "posixAccount", "inetOrgPerson",
		},
		"uid":             {uid},
		"dccDRE":          {reg.DRE},
		"cn":              {cn},
		"sn":              {sn},
		"gecos":           {gecos},
		"mail":            {uid + "@" + r.template.MailDomain},
		"emailExterno":    {reg.Email},
		"telephoneNumber": {reg.Phone},
		"uidNumber":       {uidNumber},
		"gidNumber":       {r.template.GIDNumber},
		"homeDirectory":   {r.template.HomeBase + "/" + uid},
		"loginShell":      {r.template.LoginShell},
		"userPassword":    {HashSSHA(reg.Password)},

		"sambaSID":             {r.template.SambaSIDPrefix + rid},
		"sambaAcctFlags":       {r.template.SambaAcctFlags},
		"sambaLMPassword":      {r.template.SambaLMPassword},
		"sambaNTPassword":      {HashNT(reg.Password)},
		"sambaPasswordHistory": {r.template.SambaPasswordHistory},
		"sambaPrimaryGroupSID": {r.template.SambaPrimaryGroupSID},
		"sambaPwdLastSet":      {strconv.FormatInt(nowUnix, 10)},
		"sambaPwdMustChange":   {strconv.FormatInt(kickoff, 10)},
		"sambaKickoffTime":     {strconv.FormatInt(kickoff, 10)},

		"shadowExpire":     {"-1"},
		"shadowFlag":       {"-1"},
		"shadowInactive":   {"-1"},
		"shadowLastChange": {strconv.FormatInt(nowDays, 10)},
		"shadowMax":        {"3600"},
		"shadowMin":        {"0"},
		"shadowWarning":    {"14"},

		"cota":          {r.template.Quota},
		"monitor":       {"0"},
		"dataCriacao":   {strconv.FormatInt(nowDays, 10)},
		"dataRenovacao": {strconv.FormatInt(renewal, 10)},
	}

	err = r.client.Add(ctx, &ldapc.AddRequest{DN: dn, Attributes: attrs})
	if err != nil {
		if ldapc.GetErrorCategory(err) == ldapc.ErrorCategoryConflict {
			return newOpError(KindStaleEntry,
				fmt.Sprintf("an entry for uid %q already exists", uid), err)
		}
		return classifyDirectoryError("account creation failed", err)
	}

	r.log.Info("Account created", map[string]any{
		"uid":        uid,
		"dn":         dn,
		"uid_number": uidNumber,
	})
	return nil
}

// allocateSambaIDs claims the next uidNumber and sambaNextRid from the
// samba domain entry. The increment is a delete of the observed values
// plus an add of the successors in one modify, so a concurrent
// allocator that got there first makes the delete fail and the whole
// swap is retried against fresh values.
func (r *Registrar) allocateSambaIDs(ctx context.Context) (string, string, error) {
	for attempt := 0; attempt < sambaIDAttempts; attempt++ {
		result, err := r.client.Search(ctx, &ldapc.SearchRequest{
			BaseDN:     r.baseDN,
			Scope:      ldapc.ScopeSingleLevel,
			Filter:     "(objectClass=sambaDomain)",
			Attributes: []string{"uidNumber", "sambaNextRid"},
		})
		if err != nil {
			return "", "", classifyDirectoryError("samba domain lookup failed", err)
		}
		if len(result.Entries) == 0 {
			return "", "", newOpError(KindDirectory, "no sambaDomain entry found", nil)
		}

		domain := result.Entries[0]
		curUID := domain.GetAttributeValue("uidNumber")
		curRID := domain.GetAttributeValue("sambaNextRid")

		nextUID, err := incrementCounter(curUID)
		if err != nil {
			return "", "", newOpError(KindDirectory,
				"sambaDomain uidNumber is not a number", err)
		}
		nextRID, err := incrementCounter(curRID)
		if err != nil {
			return "", "", newOpError(KindDirectory,
				"sambaDomain sambaNextRid is not a number", err)
		}

		err = r.client.Modify(ctx, &ldapc.ModifyRequest{
			DN: domain.DN,
			DeleteAttributes: map[string][]string{
				"uidNumber":    {curUID},
				"sambaNextRid": {curRID},
			},
			AddAttributes: map[string][]string{
				"uidNumber":    {nextUID},
				"sambaNextRid": {nextRID},
			},
		})
		if err == nil {
			return nextUID, nextRID, nil
		}

		r.log.Warn("Samba ID swap lost, retrying", map[string]any{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return "", "", newOpError(KindDirectory,
		"could not allocate samba IDs: counter swap kept failing", nil)
}

func incrementCounter(v string) (string, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n+1, 10), nil
}
