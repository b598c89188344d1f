package notifier

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template types accepted by Dispatcher.Send.
const (
	TypeProfileApproved  = "aprovacao_perfil"
	TypeProfileRejected  = "rejeicao_perfil"
	TypeCourseApproved   = "aprovacao_curso"
	TypeCourseRejected   = "rejeicao_curso"
	TypeEmployerApproved = "aprovacao_empregador"
	TypeEmployerRejected = "rejeicao_empregador"
	TypeProAccount       = "aprovacao_conta_pro"
)

type messageTemplate struct {
	title string // in-app title, also the email subject
	inApp *template.Template
	email *template.Template
}

// data passed to every template
type templateData struct {
	Name    string
	Details string
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

const emailFooter = `

Atenciosamente,
Equipa Agregador`

var templates = map[string]messageTemplate{
	TypeProfileApproved: {
		title: "Perfil aprovado",
		inApp: mustTemplate("perfil-ok", `O seu perfil foi aprovado. Já pode candidatar-se às vagas.`),
		email: mustTemplate("perfil-ok-email", `Olá {{.Name}},

O seu perfil foi verificado e aprovado. Já pode candidatar-se às vagas publicadas na plataforma.`+emailFooter),
	},
	TypeProfileRejected: {
		title: "Perfil não aprovado",
		inApp: mustTemplate("perfil-nok", `O seu perfil não foi aprovado.{{if .Details}} Motivo: {{.Details}}{{end}}`),
		email: mustTemplate("perfil-nok-email", `Olá {{.Name}},

Infelizmente o seu perfil não foi aprovado.{{if .Details}}

Motivo: {{.Details}}{{end}}

Pode actualizar os seus dados e submeter novamente.`+emailFooter),
	},
	TypeCourseApproved: {
		title: "Curso aprovado",
		inApp: mustTemplate("curso-ok", `O seu curso foi aprovado e já está visível.{{if .Details}} {{.Details}}{{end}}`),
		email: mustTemplate("curso-ok-email", `Olá {{.Name}},

O seu curso foi aprovado e já está visível para os candidatos.{{if .Details}}

{{.Details}}{{end}}`+emailFooter),
	},
	TypeCourseRejected: {
		title: "Curso não aprovado",
		inApp: mustTemplate("curso-nok", `O seu curso não foi aprovado.{{if .Details}} Motivo: {{.Details}}{{end}}`),
		email: mustTemplate("curso-nok-email", `Olá {{.Name}},

O curso submetido não foi aprovado.{{if .Details}}

Motivo: {{.Details}}{{end}}`+emailFooter),
	},
	TypeEmployerApproved: {
		title: "Conta de empregador aprovada",
		inApp: mustTemplate("empregador-ok", `A sua conta de empregador foi aprovada. Já pode publicar vagas.`),
		email: mustTemplate("empregador-ok-email", `Olá {{.Name}},

A sua conta de empregador foi aprovada. Já pode publicar vagas na plataforma.`+emailFooter),
	},
	TypeEmployerRejected: {
		title: "Conta de empregador não aprovada",
		inApp: mustTemplate("empregador-nok", `A sua conta de empregador não foi aprovada.{{if .Details}} Motivo: {{.Details}}{{end}}`),
		email: mustTemplate("empregador-nok-email", `Olá {{.Name}},

A sua conta de empregador não foi aprovada.{{if .Details}}

Motivo: {{.Details}}{{end}}`+emailFooter),
	},
	TypeProAccount: {
		title: "Conta Pro activada",
		inApp: mustTemplate("pro-ok", `A sua conta Pro foi activada.{{if .Details}} {{.Details}}{{end}}`),
		email: mustTemplate("pro-ok-email", `Olá {{.Name}},

O pagamento foi confirmado e a sua conta Pro está activa.{{if .Details}}

{{.Details}}{{end}}`+emailFooter),
	},
}

// Types lists the known template types.
func Types() []string {
	return []string{
		TypeProfileApproved, TypeProfileRejected,
		TypeCourseApproved, TypeCourseRejected,
		TypeEmployerApproved, TypeEmployerRejected,
		TypeProAccount,
	}
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
