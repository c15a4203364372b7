package flow

import (
	"fmt"
	"strings"

	"github.com/vmartins/esterbot/bot/fees"
	"github.com/vmartins/esterbot/bot/format"
)

// User-facing copy of the Saque Essencial flow.
const (
	msgGreeting = "Olá! Sou a Ester, sua assistente essencial. Como posso te chamar?"

	msgAskInstallments = "Em quantas vezes deseja parcelar? (1 a 18 vezes)"

	msgLimitFormatHint        = "Por favor, informe apenas números. Exemplo: 1500"
	msgInstallmentsFormatHint = "Por favor, informe apenas números. Exemplo: 6"
	msgInstallmentsRangeHint  = "Digite um número entre 1 e 18."
	msgNewValueFormatHint     = "Por favor, informe apenas o novo valor numérico. Exemplo: 2000"

	msgAskNewValue = "Certo! Qual valor você deseja sacar? 💰\nDigite apenas o valor numérico."

	msgNoLimit = "Para continuar com a solicitação do Saque Essencial, é necessário um cartão com limite.\n" +
		"Infelizmente, não conseguimos prosseguir neste momento, mas agradecemos seu contato! 💙"

	msgContinueSimulation = "Perfeito! Um especialista irá te acompanhar a partir de agora. ✅"

	msgTalkToAgent = "Certo! Em instantes um atendente humano vai te chamar. 🧑‍💼"
)

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "cliente"
	}
	return name
}

func msgHasLimit(name string) string {
	return fmt.Sprintf("%s, você possui limite no cartão de crédito? 💳", displayName(name))
}

func msgAskLimit(name string) string {
	return fmt.Sprintf("%s, qual é o limite disponível no seu cartão de crédito? 💳\nDigite apenas números. Ex: 1000", displayName(name))
}

func msgLimitSaved(limit int) string {
	return fmt.Sprintf("✅ Perfeito! Limite de R$ %s anotado. 💳", format.GroupInt(limit))
}

func msgInstallmentsSaved(installments int) string {
	return fmt.Sprintf("📆 Parcelamento em %dx registrado. Agora vamos calcular sua simulação...", installments)
}

func msgResult(installments int, sim fees.Simulation) string {
	return fmt.Sprintf(
		"Com base no seu limite, você pode sacar até *%s* 💰\n"+
			"Parcelado em *%dx* de aproximadamente *%s* 💳\n\n"+
			"Essa opção te agrada?",
		format.BRL(sim.Withdrawal), installments, format.BRL(sim.PerInstallment),
	)
}

func msgNewValueFeasible(target, installments int) string {
	return fmt.Sprintf("📊 Para sacar %s, será possível em até *%dx* parcelas.", format.BRL(float64(target)), installments)
}

func msgNewValueCeiling(ceiling float64) string {
	return fmt.Sprintf("⚠️ Com base no seu limite, o valor máximo possível para saque é *%s* (em 1x). Por favor, tente outro valor.", format.BRL(ceiling))
}
