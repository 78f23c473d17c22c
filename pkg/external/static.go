package external

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharmguard-server/internal/domain"
)

// StaticExplainer produces deterministic explanations without any network
// dependency. Curated text covers the flagship gene/phenotype/drug
// combinations; everything else is rendered from a template. It never fails,
// which makes it the terminal fallback of the provider chain and the default
// backend for offline use.
type StaticExplainer struct {
	curated map[string]domain.Explanation
}

// NewStaticExplainer creates a static explanation provider.
func NewStaticExplainer() *StaticExplainer {
	return &StaticExplainer{curated: curatedExplanations()}
}

// Name identifies the provider in logs and health reports.
func (s *StaticExplainer) Name() string {
	return ProviderStatic
}

// Explain returns the curated explanation for the profile when one exists,
// otherwise a templated generic explanation.
func (s *StaticExplainer) Explain(_ context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error) {
	if req == nil {
		return nil, fmt.Errorf("explanation request cannot be nil")
	}

	if curated, ok := s.curated[curatedKey(req.Gene, req.Phenotype, req.Drug)]; ok {
		explanation := curated
		return &explanation, nil
	}

	return s.generic(req), nil
}

// generic renders a profile-specific explanation from the request fields
// alone.
func (s *StaticExplainer) generic(req *domain.ExplanationRequest) *domain.Explanation {
	drug := strings.ToLower(req.Drug)

	summary := fmt.Sprintf("The %s diplotype %s corresponds to a %s phenotype, assessed as %s for %s.",
		req.Gene, req.Diplotype, req.Phenotype, req.RiskLabel, drug)
	if req.Gene == "" || req.Diplotype == "" {
		summary = fmt.Sprintf("No pharmacogenomic gene is linked to %s in the current guideline set; the assessment is %s.",
			drug, req.RiskLabel)
	}

	mechanism := req.Phenotype.Definition()
	if req.ActivityScore != nil {
		mechanism = fmt.Sprintf("%s. The combined allele activity score is %.1f.", mechanism, *req.ActivityScore)
	}

	clinicalContext := req.Action
	if clinicalContext == "" {
		clinicalContext = "Clinical interpretation should follow the matching CPIC guideline where one is available."
	}

	return &domain.Explanation{
		Summary:         summary,
		Mechanism:       mechanism,
		ClinicalContext: clinicalContext,
		References:      genericReferences(),
	}
}

// FillMissing copies static text into any blank field of an explanation
// produced by another provider. LLM output occasionally drops a field;
// reports should still carry complete narrative sections.
func (s *StaticExplainer) FillMissing(explanation *domain.Explanation, req *domain.ExplanationRequest) {
	if explanation == nil || req == nil {
		return
	}

	fallback, err := s.Explain(context.Background(), req)
	if err != nil {
		return
	}

	if strings.TrimSpace(explanation.Summary) == "" {
		explanation.Summary = fallback.Summary
	}
	if strings.TrimSpace(explanation.Mechanism) == "" {
		explanation.Mechanism = fallback.Mechanism
	}
	if strings.TrimSpace(explanation.ClinicalContext) == "" {
		explanation.ClinicalContext = fallback.ClinicalContext
	}
	if len(explanation.References) == 0 {
		explanation.References = fallback.References
	}
}

func curatedKey(gene domain.Gene, phenotype domain.PhenotypeCode, drug string) string {
	return string(gene) + "|" + string(phenotype) + "|" + strings.ToUpper(strings.TrimSpace(drug))
}

func genericReferences() []string {
	return []string{
		"Clinical Pharmacogenetics Implementation Consortium (CPIC) guidelines",
		"PharmGKB drug label annotations",
	}
}

func curatedExplanations() map[string]domain.Explanation {
	curated := make(map[string]domain.Explanation)

	add := func(gene domain.Gene, phenotype domain.PhenotypeCode, drug string, explanation domain.Explanation) {
		curated[curatedKey(gene, phenotype, drug)] = explanation
	}

	add(domain.CYP2D6, domain.PM, "CODEINE", domain.Explanation{
		Summary:         "This patient is a CYP2D6 poor metabolizer and cannot convert codeine into morphine, its active form. Codeine is expected to provide little or no pain relief while still exposing the patient to adverse effects.",
		Mechanism:       "Codeine is a prodrug that depends on CYP2D6 O-demethylation for conversion to morphine. With two no-function CYP2D6 alleles, morphine formation is greatly reduced and analgesia fails.",
		ClinicalContext: "Avoid codeine. Select an analgesic that does not require CYP2D6 activation, such as morphine or a non-opioid. Escalating the codeine dose does not restore analgesia and increases adverse-effect risk.",
		References: []string{
			"CPIC Guideline for Codeine and CYP2D6 (2014 Update)",
			"PharmGKB codeine pathway, pharmacokinetics",
		},
	})

	add(domain.CYP2D6, domain.URM, "CODEINE", domain.Explanation{
		Summary:         "This patient is a CYP2D6 ultrarapid metabolizer. Codeine is converted to morphine faster and more completely than normal, creating a risk of life-threatening toxicity at standard doses.",
		Mechanism:       "Gene duplication increases CYP2D6 activity, so a larger fraction of each codeine dose is O-demethylated to morphine. Peak morphine exposure can reach levels that cause respiratory depression.",
		ClinicalContext: "Codeine is contraindicated. Use an analgesic whose exposure does not depend on CYP2D6, and counsel against over-the-counter codeine products.",
		References: []string{
			"CPIC Guideline for Codeine and CYP2D6 (2014 Update)",
			"FDA Drug Safety Communication: codeine in CYP2D6 ultrarapid metabolizers",
		},
	})

	add(domain.CYP2C19, domain.PM, "CLOPIDOGREL", domain.Explanation{
		Summary:         "This patient is a CYP2C19 poor metabolizer and forms too little of clopidogrel's active metabolite. Platelet inhibition is expected to be inadequate, leaving the patient under-protected against thrombotic events.",
		Mechanism:       "Clopidogrel is a prodrug requiring two sequential CYP2C19-mediated oxidation steps. Two no-function alleles leave residual platelet reactivity high on standard dosing.",
		ClinicalContext: "Prefer prasugrel or ticagrelor where not contraindicated; these antiplatelet agents do not depend on CYP2C19 activation.",
		References: []string{
			"CPIC Guideline for Clopidogrel and CYP2C19 (2022 Update)",
			"PharmGKB clopidogrel pathway, pharmacokinetics",
		},
	})

	add(domain.CYP2C9, domain.PM, "WARFARIN", domain.Explanation{
		Summary:         "This patient is a CYP2C9 poor metabolizer and clears S-warfarin much more slowly than normal. Standard warfarin initiation carries an elevated bleeding risk.",
		Mechanism:       "CYP2C9 inactivates S-warfarin, the more potent enantiomer. Reduced clearance raises steady-state exposure, prolonging INR elevation during dose titration.",
		ClinicalContext: "Reduce the starting dose substantially and titrate with frequent INR monitoring, or consider a direct oral anticoagulant where clinically appropriate.",
		References: []string{
			"CPIC Guideline for Warfarin Dosing and CYP2C9 (2017 Update)",
			"PharmGKB warfarin pathway, pharmacokinetics",
		},
	})

	add(domain.SLCO1B1, domain.IM, "SIMVASTATIN", domain.Explanation{
		Summary:         "This patient carries decreased-function SLCO1B1 transport and has above-normal systemic simvastatin exposure, raising the risk of muscle toxicity.",
		Mechanism:       "OATP1B1, encoded by SLCO1B1, moves simvastatin acid into hepatocytes. Decreased transport leaves more drug circulating in plasma, the main driver of simvastatin myopathy.",
		ClinicalContext: "Limit simvastatin to 20 mg daily or switch to a statin less dependent on OATP1B1 uptake, such as rosuvastatin or pravastatin. Counsel the patient on myopathy symptoms.",
		References: []string{
			"CPIC Guideline for Statins and SLCO1B1 (2022)",
			"PharmGKB simvastatin pathway, pharmacokinetics",
		},
	})

	add(domain.TPMT, domain.PM, "AZATHIOPRINE", domain.Explanation{
		Summary:         "This patient has little or no TPMT activity. Standard azathioprine doses shunt metabolism toward cytotoxic thioguanine nucleotides and can cause life-threatening myelosuppression.",
		Mechanism:       "TPMT methylates thiopurine intermediates into inactive products. Without that route, thioguanine nucleotides accumulate in hematopoietic tissue.",
		ClinicalContext: "If a thiopurine is required, start at a drastically reduced dose with extended dosing intervals and intensive blood-count monitoring, or choose a non-thiopurine immunosuppressant.",
		References: []string{
			"CPIC Guideline for Thiopurines and TPMT (2018 Update)",
			"PharmGKB azathioprine pathway, pharmacokinetics",
		},
	})

	add(domain.DPYD, domain.PM, "FLUOROURACIL", domain.Explanation{
		Summary:         "This patient has complete DPD deficiency and cannot inactivate fluorouracil. Standard dosing carries a risk of severe, potentially fatal toxicity.",
		Mechanism:       "Dihydropyrimidine dehydrogenase, encoded by DPYD, catabolizes more than 80% of an administered fluorouracil dose. Without it, active metabolites accumulate in normal tissue.",
		ClinicalContext: "Avoid fluorouracil and capecitabine. If no alternative exists, treatment requires a greatly reduced dose with therapeutic drug monitoring in a specialist setting.",
		References: []string{
			"CPIC Guideline for Fluoropyrimidines and DPYD (2017 Update)",
			"PharmGKB fluorouracil pathway, pharmacokinetics",
		},
	})

	return curated
}
