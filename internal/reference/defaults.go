package reference

import "github.com/pharmguard-server/internal/domain"

// Compiled-in reference tables. A data directory can replace any of the
// three tables wholesale at startup; these defaults cover the full panel so
// the pipeline works with no external data files.
//
// Direct diplotype rows for allele pairs with known effects always agree
// with the activity-score banding, so the lookup path and the score
// fallback can never contradict each other. Rows for designators without a
// scoreable effect (gene duplications, combination haplotypes) exist only
// in the lookup representation.

func builtinAlleles() map[string]AlleleDefinition {
	alleles := make(map[string]AlleleDefinition)

	add := func(rsid string, gene domain.Gene, star string, effect domain.AlleleEffect, significance string) {
		alleles[rsid] = AlleleDefinition{
			RSID:                 rsid,
			Gene:                 gene,
			StarAllele:           star,
			Effect:               effect,
			ClinicalSignificance: significance,
		}
	}

	// CYP2D6
	add("rs3892097", domain.CYP2D6, "*4", domain.LOSS_OF_FUNCTION, "Splice defect (1846G>A); most common CYP2D6 no-function allele")
	add("rs35742686", domain.CYP2D6, "*3", domain.LOSS_OF_FUNCTION, "Frameshift (2549delA); no enzyme activity")
	add("rs5030655", domain.CYP2D6, "*6", domain.LOSS_OF_FUNCTION, "Frameshift (1707delT); no enzyme activity")
	add("rs5030656", domain.CYP2D6, "*9", domain.DECREASED_FUNCTION, "In-frame deletion (K281del); reduced enzyme activity")
	add("rs1065852", domain.CYP2D6, "*10", domain.DECREASED_FUNCTION, "P34S (100C>T); unstable enzyme, common in East Asian populations")
	add("rs28371725", domain.CYP2D6, "*41", domain.DECREASED_FUNCTION, "Splicing defect (2988G>A); reduced expression")
	add("rs16947", domain.CYP2D6, "*2", domain.NORMAL_FUNCTION, "R296C (2850C>T); normal enzyme activity")

	// CYP2C19
	add("rs4244285", domain.CYP2C19, "*2", domain.LOSS_OF_FUNCTION, "Splice defect (681G>A); no enzyme activity")
	add("rs4986893", domain.CYP2C19, "*3", domain.LOSS_OF_FUNCTION, "Premature stop (W212X); no enzyme activity")
	add("rs28399504", domain.CYP2C19, "*4", domain.LOSS_OF_FUNCTION, "Initiation codon variant (1A>G); no enzyme activity")
	add("rs12248560", domain.CYP2C19, "*17", domain.INCREASED_FUNCTION, "Promoter variant (-806C>T); increased transcription")

	// CYP2C9
	add("rs1799853", domain.CYP2C9, "*2", domain.DECREASED_FUNCTION, "R144C (430C>T); reduced enzyme activity")
	add("rs1057910", domain.CYP2C9, "*3", domain.LOSS_OF_FUNCTION, "I359L (1075A>C); minimal enzyme activity")
	add("rs28371686", domain.CYP2C9, "*5", domain.DECREASED_FUNCTION, "D360E (1080C>G); reduced enzyme activity")
	add("rs9332131", domain.CYP2C9, "*6", domain.LOSS_OF_FUNCTION, "Frameshift (818delA); no enzyme activity")

	// SLCO1B1
	add("rs4149056", domain.SLCO1B1, "*5", domain.DECREASED_FUNCTION, "V174A (521T>C); decreased transporter function, statin myopathy risk")
	add("rs2306283", domain.SLCO1B1, "*1B", domain.NORMAL_FUNCTION, "N130D (388A>G); normal transporter function")

	// TPMT
	add("rs1800462", domain.TPMT, "*2", domain.LOSS_OF_FUNCTION, "A80P (238G>C); no enzyme activity")
	add("rs1800460", domain.TPMT, "*3B", domain.LOSS_OF_FUNCTION, "A154T (460G>A); no enzyme activity")
	add("rs1142345", domain.TPMT, "*3C", domain.LOSS_OF_FUNCTION, "Y240C (719A>G); no enzyme activity")

	// DPYD
	add("rs3918290", domain.DPYD, "*2A", domain.LOSS_OF_FUNCTION, "Splice donor variant (c.1905+1G>A); complete DPD deficiency")
	add("rs55886062", domain.DPYD, "*13", domain.LOSS_OF_FUNCTION, "I560S (c.1679T>G); no enzyme activity")
	add("rs67376798", domain.DPYD, "c.2846A>T", domain.DECREASED_FUNCTION, "D949V (c.2846A>T); partial DPD deficiency")

	return alleles
}

func builtinDiplotypes() map[domain.Gene]GeneDiplotypeTable {
	tables := make(map[domain.Gene]GeneDiplotypeTable)

	add := func(gene domain.Gene, phenotypes map[string]domain.PhenotypeCode) {
		tables[gene] = GeneDiplotypeTable{
			Gene:             gene,
			Phenotypes:       phenotypes,
			DefaultDiplotype: domain.WildTypeAllele + "/" + domain.WildTypeAllele,
			DefaultPhenotype: domain.NM,
		}
	}

	add(domain.CYP2D6, map[string]domain.PhenotypeCode{
		"*1/*1":   domain.NM,
		"*1/*2":   domain.NM,
		"*2/*2":   domain.NM,
		"*1/*10":  domain.NM,
		"*1/*41":  domain.NM,
		"*1/*4":   domain.IM,
		"*10/*10": domain.IM,
		"*10/*4":  domain.IM,
		"*4/*41":  domain.IM,
		"*41/*41": domain.IM,
		"*3/*4":   domain.PM,
		"*4/*4":   domain.PM,
		"*4/*6":   domain.PM,
		"*1/*1xN": domain.URM,
		"*1xN/*2": domain.URM,
	})

	add(domain.CYP2C19, map[string]domain.PhenotypeCode{
		"*1/*1":   domain.NM,
		"*1/*2":   domain.IM,
		"*1/*3":   domain.IM,
		"*1/*4":   domain.IM,
		"*2/*2":   domain.PM,
		"*2/*3":   domain.PM,
		"*2/*4":   domain.PM,
		"*3/*3":   domain.PM,
		"*1/*17":  domain.RM,
		"*17/*17": domain.RM,
	})

	add(domain.CYP2C9, map[string]domain.PhenotypeCode{
		"*1/*1": domain.NM,
		"*1/*2": domain.NM,
		"*1/*3": domain.IM,
		"*1/*6": domain.IM,
		"*2/*2": domain.IM,
		"*2/*3": domain.IM,
		"*3/*3": domain.PM,
	})

	add(domain.SLCO1B1, map[string]domain.PhenotypeCode{
		"*1/*1":   domain.NM,
		"*1/*1B":  domain.NM,
		"*1B/*1B": domain.NM,
		"*1/*5":   domain.NM,
		"*1B/*5":  domain.NM,
		"*5/*5":   domain.IM,
	})

	add(domain.TPMT, map[string]domain.PhenotypeCode{
		"*1/*1":   domain.NM,
		"*1/*2":   domain.IM,
		"*1/*3B":  domain.IM,
		"*1/*3C":  domain.IM,
		"*1/*3A":  domain.IM,
		"*2/*3C":  domain.PM,
		"*3B/*3C": domain.PM,
		"*3C/*3C": domain.PM,
		"*3A/*3A": domain.PM,
	})

	add(domain.DPYD, map[string]domain.PhenotypeCode{
		"*1/*1":   domain.NM,
		"*1/*2A":  domain.IM,
		"*1/*13":  domain.IM,
		"*2A/*2A": domain.PM,
		"*13/*2A": domain.PM,
		"*13/*13": domain.PM,
	})

	return tables
}

func builtinGuidelines() map[string]DrugGuideline {
	guidelines := make(map[string]DrugGuideline)

	add := func(drug string, gene domain.Gene, drugType string, rules map[domain.PhenotypeCode]DrugRule) {
		guidelines[drug] = DrugGuideline{
			Drug:        drug,
			PrimaryGene: gene,
			DrugType:    drugType,
			Rules:       rules,
		}
	}

	codeineRef := "CPIC Guideline for Codeine and CYP2D6 (2014 Update)"
	add("CODEINE", domain.CYP2D6, "prodrug", map[domain.PhenotypeCode]DrugRule{
		domain.PM: {
			RiskLabel:          domain.TOXIC,
			Severity:           domain.SEVERITY_HIGH,
			Action:             "Avoid codeine. Greatly reduced morphine formation leads to therapeutic failure, and dose escalation risks adverse effects without analgesia.",
			DoseAdjustment:     "Do not titrate codeine; select an alternative analgesic.",
			AlternativeDrugs:   []string{"morphine", "non-opioid analgesics"},
			MonitoringRequired: true,
			GuidelineReference: codeineRef,
		},
		domain.IM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Use codeine at the label starting dose and reassess analgesia early; reduced morphine formation may blunt the response.",
			DoseAdjustment:     "Standard starting dose; switch to an alternative if analgesia is inadequate at 24-48 hours.",
			AlternativeDrugs:   []string{"morphine", "non-opioid analgesics"},
			MonitoringRequired: true,
			GuidelineReference: codeineRef,
		},
		domain.NM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use codeine at standard label dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: codeineRef,
		},
		domain.RM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Use the lowest effective dose; increased morphine formation is possible.",
			DoseAdjustment:     "Start low and watch for opioid adverse effects.",
			MonitoringRequired: true,
			GuidelineReference: codeineRef,
		},
		domain.URM: {
			RiskLabel:          domain.TOXIC,
			Severity:           domain.SEVERITY_CRITICAL,
			Action:             "Avoid codeine. Ultrarapid conversion to morphine risks life-threatening respiratory depression.",
			DoseAdjustment:     "Do not prescribe codeine at any dose.",
			AlternativeDrugs:   []string{"morphine", "non-opioid analgesics"},
			MonitoringRequired: true,
			GuidelineReference: codeineRef,
		},
	})

	clopidogrelRef := "CPIC Guideline for Clopidogrel and CYP2C19 (2022 Update)"
	add("CLOPIDOGREL", domain.CYP2C19, "prodrug", map[domain.PhenotypeCode]DrugRule{
		domain.PM: {
			RiskLabel:          domain.INEFFECTIVE,
			Severity:           domain.SEVERITY_HIGH,
			Action:             "Avoid clopidogrel. Insufficient active metabolite formation leaves platelet inhibition inadequate, raising thrombotic risk.",
			DoseAdjustment:     "Use an alternative antiplatelet agent at standard dosing.",
			AlternativeDrugs:   []string{"prasugrel", "ticagrelor"},
			MonitoringRequired: true,
			GuidelineReference: clopidogrelRef,
		},
		domain.IM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Consider an alternative antiplatelet agent; residual platelet reactivity on clopidogrel is likely.",
			DoseAdjustment:     "Prefer prasugrel or ticagrelor where not contraindicated.",
			AlternativeDrugs:   []string{"prasugrel", "ticagrelor"},
			MonitoringRequired: true,
			GuidelineReference: clopidogrelRef,
		},
		domain.NM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use clopidogrel at standard dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: clopidogrelRef,
		},
		domain.RM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use clopidogrel at standard dosing; increased active metabolite formation does not require adjustment.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: clopidogrelRef,
		},
		domain.URM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_LOW,
			Action:             "Use clopidogrel at standard dosing; a modest increase in bleeding tendency is possible.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: clopidogrelRef,
		},
	})

	warfarinRef := "CPIC Guideline for Warfarin Dosing and CYP2C9 (2017 Update)"
	add("WARFARIN", domain.CYP2C9, "active", map[domain.PhenotypeCode]DrugRule{
		domain.PM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_HIGH,
			Action:             "Reduce the warfarin starting dose substantially and titrate slowly; clearance is markedly reduced and bleeding risk elevated.",
			DoseAdjustment:     "Consider a 50% or greater reduction of the calculated starting dose with frequent INR checks.",
			AlternativeDrugs:   []string{"direct oral anticoagulants"},
			MonitoringRequired: true,
			GuidelineReference: warfarinRef,
		},
		domain.IM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Reduce the warfarin starting dose; induction-phase bleeding risk is increased.",
			DoseAdjustment:     "Consider a 25-50% reduction of the calculated starting dose.",
			MonitoringRequired: true,
			GuidelineReference: warfarinRef,
		},
		domain.NM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Dose warfarin per standard clinical algorithms.",
			DoseAdjustment:     "No pharmacogenomic adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: warfarinRef,
		},
		domain.RM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_LOW,
			Action:             "A higher than standard maintenance dose may be needed to reach therapeutic INR.",
			DoseAdjustment:     "Titrate upward per INR response.",
			MonitoringRequired: true,
			GuidelineReference: warfarinRef,
		},
		domain.URM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Rapid clearance may keep INR subtherapeutic at standard doses.",
			DoseAdjustment:     "Titrate upward per INR response; consider alternative anticoagulation if INR remains subtherapeutic.",
			AlternativeDrugs:   []string{"direct oral anticoagulants"},
			MonitoringRequired: true,
			GuidelineReference: warfarinRef,
		},
	})

	simvastatinRef := "CPIC Guideline for Statins and SLCO1B1 (2022)"
	add("SIMVASTATIN", domain.SLCO1B1, "active", map[domain.PhenotypeCode]DrugRule{
		domain.PM: {
			RiskLabel:          domain.TOXIC,
			Severity:           domain.SEVERITY_HIGH,
			Action:             "Avoid simvastatin. Impaired hepatic uptake causes high systemic exposure and myopathy risk.",
			DoseAdjustment:     "Prescribe an alternative statin; if a statin is required urgently, use the lowest dose with creatine kinase monitoring.",
			AlternativeDrugs:   []string{"rosuvastatin", "pravastatin"},
			MonitoringRequired: true,
			GuidelineReference: simvastatinRef,
		},
		domain.IM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Limit simvastatin to 20 mg daily or switch to a statin less dependent on OATP1B1 uptake.",
			DoseAdjustment:     "Maximum 20 mg daily; counsel on myopathy symptoms.",
			AlternativeDrugs:   []string{"rosuvastatin", "pravastatin"},
			MonitoringRequired: true,
			GuidelineReference: simvastatinRef,
		},
		domain.NM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use simvastatin at standard dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: simvastatinRef,
		},
		domain.RM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use simvastatin at standard dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: simvastatinRef,
		},
		domain.URM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_LOW,
			Action:             "Use simvastatin at standard dosing; enhanced hepatic uptake may lower systemic exposure.",
			DoseAdjustment:     "Monitor lipid response and intensify therapy if targets are not met.",
			MonitoringRequired: false,
			GuidelineReference: simvastatinRef,
		},
	})

	azathioprineRef := "CPIC Guideline for Thiopurines and TPMT (2018 Update)"
	add("AZATHIOPRINE", domain.TPMT, "active", map[domain.PhenotypeCode]DrugRule{
		domain.PM: {
			RiskLabel:          domain.TOXIC,
			Severity:           domain.SEVERITY_CRITICAL,
			Action:             "Avoid azathioprine if possible. Absent TPMT activity causes severe, potentially fatal myelosuppression at standard doses.",
			DoseAdjustment:     "If a thiopurine is required, reduce the daily dose roughly tenfold and administer three times weekly with intensive blood-count monitoring.",
			AlternativeDrugs:   []string{"non-thiopurine immunosuppressant"},
			MonitoringRequired: true,
			GuidelineReference: azathioprineRef,
		},
		domain.IM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_HIGH,
			Action:             "Start azathioprine at a reduced dose and titrate by tolerance; accumulation of active metabolites increases myelosuppression risk.",
			DoseAdjustment:     "Start at 30-80% of the target dose with regular complete blood counts.",
			MonitoringRequired: true,
			GuidelineReference: azathioprineRef,
		},
		domain.NM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use azathioprine at standard dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: azathioprineRef,
		},
		domain.RM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_LOW,
			Action:             "Rapid inactivation may blunt efficacy; assess response and escalate cautiously.",
			DoseAdjustment:     "Titrate toward the upper end of the standard range if response is inadequate.",
			MonitoringRequired: true,
			GuidelineReference: azathioprineRef,
		},
		domain.URM: {
			RiskLabel:          domain.INEFFECTIVE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Greatly increased inactivation makes therapeutic thioguanine nucleotide levels unlikely at standard doses.",
			DoseAdjustment:     "Consider an alternative immunosuppressant or metabolite-guided dosing.",
			AlternativeDrugs:   []string{"non-thiopurine immunosuppressant"},
			MonitoringRequired: true,
			GuidelineReference: azathioprineRef,
		},
	})

	fluorouracilRef := "CPIC Guideline for Fluoropyrimidines and DPYD (2017 Update)"
	add("FLUOROURACIL", domain.DPYD, "active", map[domain.PhenotypeCode]DrugRule{
		domain.PM: {
			RiskLabel:          domain.TOXIC,
			Severity:           domain.SEVERITY_CRITICAL,
			Action:             "Avoid fluorouracil and capecitabine. Complete DPD deficiency causes severe, potentially fatal toxicity at standard doses.",
			DoseAdjustment:     "Use a non-fluoropyrimidine regimen.",
			AlternativeDrugs:   []string{"non-fluoropyrimidine chemotherapy"},
			MonitoringRequired: true,
			GuidelineReference: fluorouracilRef,
		},
		domain.IM: {
			RiskLabel:          domain.ADJUST_DOSAGE,
			Severity:           domain.SEVERITY_HIGH,
			Action:             "Reduce the fluorouracil starting dose by 50% and titrate by toxicity; consider therapeutic drug monitoring.",
			DoseAdjustment:     "50% of the standard starting dose.",
			MonitoringRequired: true,
			GuidelineReference: fluorouracilRef,
		},
		domain.NM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use fluorouracil at standard dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: fluorouracilRef,
		},
		domain.RM: {
			RiskLabel:          domain.SAFE,
			Severity:           domain.SEVERITY_NONE,
			Action:             "Use fluorouracil at standard dosing.",
			DoseAdjustment:     "No adjustment required.",
			MonitoringRequired: false,
			GuidelineReference: fluorouracilRef,
		},
		domain.URM: {
			RiskLabel:          domain.INEFFECTIVE,
			Severity:           domain.SEVERITY_MODERATE,
			Action:             "Greatly increased catabolism may leave exposure subtherapeutic; monitor treatment response closely.",
			DoseAdjustment:     "Consider exposure-guided dosing or an alternative regimen if response is inadequate.",
			MonitoringRequired: true,
			GuidelineReference: fluorouracilRef,
		},
	})

	return guidelines
}
